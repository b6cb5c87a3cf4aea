// Package blobkey provides blob key generation strategies.
//
// A key namespaces the blob by its reference slot (folder) and must be unique
// enough to avoid collisions between uploads of identically named files.
package blobkey

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for blob key generation strategies
type Generator interface {
	// GenerateKey creates a blob key for storage backends
	GenerateKey(slot, originalName string) string
}

// TimePrefixGenerator derives keys from the upload time and the original
// name: {slot}/{unix-millis}-{sanitized-name}. The millisecond prefix keeps
// repeated uploads of the same file from colliding.
type TimePrefixGenerator struct {
	// Clock overrides time.Now, for tests. Nil means time.Now.
	Clock func() time.Time
}

func NewTimePrefixGenerator() *TimePrefixGenerator {
	return &TimePrefixGenerator{}
}

func (g *TimePrefixGenerator) GenerateKey(slot, originalName string) string {
	now := time.Now
	if g.Clock != nil {
		now = g.Clock
	}
	name := fmt.Sprintf("%d-%s", now().UTC().UnixMilli(), SanitizeFileName(originalName))
	if slot == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", sanitizePathComponent(slot), name)
}

// ShardedGenerator produces Git-style sharded keys for high-volume buckets:
// {slot}/{ab}/{cdef...}-{sanitized-name}, where the shard comes from a random
// uuid rather than the upload time.
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{ShardLength: 2}
}

func (g *ShardedGenerator) GenerateKey(slot, originalName string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")

	shardLen := g.ShardLength
	if shardLen <= 0 || shardLen >= len(id) {
		shardLen = 2
	}

	shard := id[:shardLen]
	remaining := id[shardLen:]

	name := fmt.Sprintf("%s-%s", remaining, SanitizeFileName(originalName))
	if slot == "" {
		return fmt.Sprintf("%s/%s", shard, name)
	}
	return fmt.Sprintf("%s/%s/%s", sanitizePathComponent(slot), shard, name)
}

// SanitizeFileName strips directory components and replaces characters that
// are problematic in object keys or filesystems.
func SanitizeFileName(name string) string {
	if name == "" {
		return "file"
	}
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(path.Base(name))
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return strings.ToLower(replacer.Replace(component))
}
