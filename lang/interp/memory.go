// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package interp

import (
	"errors"
	"fmt"
)

const (
	// DefaultMemoryLimit is the maximum number of bytes a machine may hold
	// in linear memory (4 MiB).
	DefaultMemoryLimit int64 = 4 * 1024 * 1024

	// wordSize is the width of a memory word in bytes.  PEEKI and POKEI
	// transfer one word, matching the 32-bit loads and stores of the wasm
	// backend.
	wordSize int64 = 4
)

// ErrOutOfMemory is returned when a GROWM would exceed the memory limit.
var ErrOutOfMemory = errors.New("interp: out of memory")

// ErrInvalidAddress is returned when a read or write falls outside the
// current memory size.
var ErrInvalidAddress = errors.New("interp: invalid memory address")

// Memory is the linear byte-addressable store backing PEEKI, POKEI, and
// GROWM.
//
// Design:
//   - The store starts empty and only grows; there is no free operation.
//   - Words are 32-bit little-endian, sign-extended on read.
//   - All accesses are bounds-checked against the current size.
//   - A configurable limit caps the total size.
//
// The zero value is not usable; use NewMemory.
type Memory struct {
	data  []byte
	limit int64
}

// NewMemory creates a Memory instance with the given byte limit.
// If limit is 0, DefaultMemoryLimit is used.
func NewMemory(limit int64) *Memory {
	if limit == 0 {
		limit = DefaultMemoryLimit
	}
	return &Memory{limit: limit}
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() int64 { return int64(len(m.data)) }

// Grow extends memory by n bytes and returns the new total size.
// Returns ErrOutOfMemory if the limit would be exceeded.
func (m *Memory) Grow(n int64) (int64, error) {
	if n < 0 {
		return 0, fmt.Errorf("interp: negative memory growth %d", n)
	}
	size := int64(len(m.data)) + n
	if size > m.limit {
		return 0, fmt.Errorf("%w: %d bytes requested, limit %d", ErrOutOfMemory, size, m.limit)
	}
	m.data = append(m.data, make([]byte, n)...)
	return size, nil
}

// ReadWord reads the 32-bit little-endian word at addr, sign-extended.
// Returns ErrInvalidAddress if [addr, addr+4) is out of bounds.
func (m *Memory) ReadWord(addr int64) (int64, error) {
	if err := m.checkAccess(addr); err != nil {
		return 0, err
	}
	d := m.data[addr:]
	v := uint32(d[0]) | uint32(d[1])<<8 | uint32(d[2])<<16 | uint32(d[3])<<24
	return int64(int32(v)), nil
}

// WriteWord writes v as a 32-bit little-endian word at addr.
// Returns ErrInvalidAddress if [addr, addr+4) is out of bounds.
func (m *Memory) WriteWord(addr, v int64) error {
	if err := m.checkAccess(addr); err != nil {
		return err
	}
	d := m.data[addr:]
	d[0] = byte(v)
	d[1] = byte(v >> 8)
	d[2] = byte(v >> 16)
	d[3] = byte(v >> 24)
	return nil
}

func (m *Memory) checkAccess(addr int64) error {
	if addr < 0 || addr+wordSize > int64(len(m.data)) {
		return fmt.Errorf("%w: addr=%d size=%d", ErrInvalidAddress, addr, len(m.data))
	}
	return nil
}
