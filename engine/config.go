/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package engine

import "github.com/docker/go-units"

// Config holds the package's operator-facing tunables. No config
// framework is used; fields are plain and set directly or through
// ParseConfig. The one byte-size knob, ChoiceSpillBytes, accepts a
// human-readable string ("64MB") parsed through docker/go-units;
// CodeCacheCapacity is a chunk count, not a byte size.
type Config struct {
	CodeCacheCapacity int    // number of compiled chunks kept resident
	ChoiceSpillBytes  int64  // inline choice-point alternatives buffer size
	WorkerPoolSize    int    // dispatcher worker goroutines
	CompileConcurrency int64 // max concurrent native compiles
}

// DefaultConfig returns sane defaults for a single-process run.
func DefaultConfig() Config {
	return Config{
		CodeCacheCapacity:  256,
		ChoiceSpillBytes:   mustSize("4MB"),
		WorkerPoolSize:     4,
		CompileConcurrency: 2,
	}
}

// ParseConfig builds a Config from its arguments (DefaultConfig is not
// consulted), parsing choiceSpill from a human-readable size such as
// "128MB".
func ParseConfig(codeCache int, choiceSpill string, workers int, compileConcurrency int64) (Config, error) {
	spill, err := units.FromHumanSize(choiceSpill)
	if err != nil {
		return Config{}, err
	}
	return Config{
		CodeCacheCapacity:  codeCache,
		ChoiceSpillBytes:   spill,
		WorkerPoolSize:     workers,
		CompileConcurrency: compileConcurrency,
	}, nil
}

func mustSize(s string) int64 {
	n, err := units.FromHumanSize(s)
	if err != nil {
		panic(err)
	}
	return n
}
