package db

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrSharedThroughputDisabled is reported by a store that cannot provision throughput on the
// database level (e.g. serverless accounts). Throughput then has to be set per collection.
var ErrSharedThroughputDisabled = errors.New("shared throughput is disabled for this account")

// server error codes
const (
	codeNamespaceExists     = 48
	codeCommandNotFound     = 59
	codeCommandNotSupported = 115
)

// IsNamespaceExists reports whether the server rejected a create because the database or
// collection is already there.
func IsNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists
}

// IsCommandNotFound is true for servers without the Cosmos DB extension commands, i.e. plain MongoDB.
func IsCommandNotFound(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == codeCommandNotFound
}

// IsSharedThroughputRejected recognizes the server response for database level throughput on
// accounts where the feature is disabled.
func IsSharedThroughputRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSharedThroughputDisabled) {
		return true
	}
	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	msg := strings.ToLower(cmdErr.Message)
	if cmdErr.Code == codeCommandNotSupported && strings.Contains(msg, "throughput") {
		return true
	}
	return strings.Contains(msg, "throughput") &&
		(strings.Contains(msg, "serverless") || strings.Contains(msg, "not supported") || strings.Contains(msg, "disabled"))
}
