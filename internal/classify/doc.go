// Package classify turns mono waveforms into accent classification results.
//
// A Classifier owns one Model and its FeatureExtractor. The model is loaded
// once per process through Shared and never exposed to callers; forward
// passes are serialized so backends need not be reentrant. Scores are
// softmax-normalized and the first maximum wins ties.
package classify
