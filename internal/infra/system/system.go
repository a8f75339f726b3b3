// Package system はID採番と時計の本番実装。
package system

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
)

type UUIDGenerator struct{}

func (g UUIDGenerator) NewID() string {
	return uuid.NewString()
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

// 割引コード用（読み間違えやすい 0/O/1/I は除く）
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const DefaultCodeLength = 8

// CodeGenerator は nanoid で割引コードを作る。
type CodeGenerator struct {
	gen func() string
}

func NewCodeGenerator(length int) (*CodeGenerator, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	gen, err := nanoid.CustomASCII(codeAlphabet, length)
	if err != nil {
		return nil, fmt.Errorf("nanoid: %w", err)
	}
	return &CodeGenerator{gen: gen}, nil
}

func (g *CodeGenerator) NewCode() string {
	return g.gen()
}
