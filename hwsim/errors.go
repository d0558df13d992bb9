package hwsim

import "errors"

// ErrNoDevice is returned for transactions to an address nothing answers.
var ErrNoDevice = errors.New("hwsim: no device at address")
