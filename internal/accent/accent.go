// Package accent defines the fixed accent label set and the classification
// result returned to callers.
//
// The label order matches the model's output vector: index i of the logits
// always maps to Labels()[i].
package accent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Label identifies one regional English accent.
type Label string

const (
	Africa        Label = "africa"
	Australia     Label = "australia"
	Bermuda       Label = "bermuda"
	Canada        Label = "canada"
	England       Label = "england"
	HongKong      Label = "hongkong"
	India         Label = "india"
	Ireland       Label = "ireland"
	Malaysia      Label = "malaysia"
	NewZealand    Label = "newzealand"
	Philippines   Label = "philippines"
	Scotland      Label = "scotland"
	Singapore     Label = "singapore"
	SouthAtlantic Label = "south-atlantic"
	US            Label = "us"
	Wales         Label = "wales"
)

var labels = [...]Label{
	Africa, Australia, Bermuda, Canada, England, HongKong, India, Ireland,
	Malaysia, NewZealand, Philippines, Scotland, Singapore, SouthAtlantic, US, Wales,
}

// Count is the number of labels the model scores.
const Count = len(labels)

// Labels returns a copy of the label set in model output order.
func Labels() []Label {
	out := make([]Label, len(labels))
	copy(out, labels[:])
	return out
}

// At returns the label at index i of the model output.
func At(i int) (Label, bool) {
	if i < 0 || i >= len(labels) {
		return "", false
	}
	return labels[i], true
}

// Parse resolves a label name case-insensitively.
func Parse(name string) (Label, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, l := range labels {
		if string(l) == needle {
			return l, true
		}
	}
	return "", false
}

// Display returns the capitalized label, title-casing each hyphen-separated word
// ("south-atlantic" -> "South-Atlantic").
func (l Label) Display() string {
	titler := cases.Title(language.English)
	parts := strings.Split(string(l), "-")
	for i, part := range parts {
		parts[i] = titler.String(part)
	}
	return strings.Join(parts, "-")
}

func (l Label) String() string { return string(l) }
