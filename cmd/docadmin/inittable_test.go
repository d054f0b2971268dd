package main

import (
	"testing"
	"time"
)

func TestTableWaitTimeout(t *testing.T) {
	// Guards against the untyped-literal mistake where 60 becomes 60ns and
	// the waiter gives up before DynamoDB can report the table state.
	if tableWaitTimeout < 30*time.Second {
		t.Fatalf("tableWaitTimeout = %v, too short for table creation", tableWaitTimeout)
	}
}
