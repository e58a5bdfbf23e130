// Package errs holds the sentinel errors shared by the model packages.
package errs

import "errors"

var (
	// ErrInvalidParameter reports a hyperparameter outside its domain,
	// e.g. a negative smoothing constant.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotImplemented reports a request for an estimator with no concrete family.
	ErrNotImplemented = errors.New("not implemented")

	// ErrMalformedInput reports a lexicon, vocabulary or model file with the wrong shape.
	ErrMalformedInput = errors.New("malformed input")

	// ErrEmptyCorpus reports a corpus without a single token where one is required.
	ErrEmptyCorpus = errors.New("empty corpus")
)
