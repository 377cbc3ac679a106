package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewInstanceID identifies this server process in pool heartbeats:
// hostname, pid and a ULID suffix.
func NewInstanceID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "todo"
	}
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), strings.ToLower(ulid.Make().String()))
}

// NewRequestID returns a sortable id for X-Request-ID.
func NewRequestID() string {
	return ulid.Make().String()
}
