package dbagent

import (
	"context"
	"strings"
	"testing"
)

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(context.Background(), Params{Driver: "oracle"})
	if err == nil {
		t.Fatal("Connect() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "unsupported database driver") {
		t.Errorf("Connect() error = %v", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	params := Params{
		Driver:   "mysql",
		Host:     "127.0.0.1",
		Port:     "1",
		User:     "u",
		Password: "p",
		Database: "d",
	}
	if _, err := Connect(context.Background(), params); err == nil {
		t.Fatal("Connect() error = nil, want unreachable error")
	}
}
