package transport_test

import (
	"github.com/moffa90/go-bleota/ota"
	"github.com/moffa90/go-bleota/transport"
)

var _ transport.Dispatcher = (*ota.Session)(nil)
