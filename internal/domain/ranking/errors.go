package ranking

import "errors"

// ErrUnknownDifficulty is returned when a difficulty name or value is not recognized.
var ErrUnknownDifficulty = errors.New("unknown difficulty")
