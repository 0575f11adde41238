// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kadirpekel/hexboard/internal/config"
)

// ValidateCmd checks a board export file for structural and per-tool
// config errors without ever touching a store.
type ValidateCmd struct {
	Board  string `arg:"" name:"board" help:"Board export YAML file path." placeholder:"PATH"`
	Format string `short:"f" help:"Output format: compact, json." default:"compact" enum:"compact,json"`
}

func (c *ValidateCmd) Run(_ *CLI) error {
	ctx := context.Background()

	exp, err := config.LoadBoardExport(c.Board)
	if err != nil {
		return c.report(false, []string{err.Error()})
	}

	errs := config.ValidateBoardExport(ctx, exp)
	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		if err := c.report(false, messages); err != nil {
			return err
		}
		return fmt.Errorf("%s: %d validation error(s)", c.Board, len(errs))
	}

	return c.report(true, nil)
}

type validateResult struct {
	Valid  bool     `json:"valid"`
	Board  string   `json:"board"`
	Errors []string `json:"errors,omitempty"`
}

func (c *ValidateCmd) report(valid bool, errs []string) error {
	if c.Format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(validateResult{Valid: valid, Board: c.Board, Errors: errs})
	}

	if valid {
		fmt.Fprintf(os.Stdout, "%s: valid\n", c.Board)
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s: invalid\n", c.Board)
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "  - %s\n", e)
	}
	return nil
}
