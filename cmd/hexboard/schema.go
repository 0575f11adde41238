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
	"fmt"
	"os"

	"github.com/kadirpekel/hexboard/internal/config"
	"github.com/kadirpekel/hexboard/internal/model"
)

// SchemaCmd prints the JSON Schema for one built-in tool type's config, for
// board-authoring tools to validate against before an export is ever
// imported into a store.
type SchemaCmd struct {
	ToolType string `arg:"" name:"tool-type" help:"Built-in tool type: filesystem, shell, or tasklist." enum:"filesystem,shell,tasklist"`
}

func (c *SchemaCmd) Run(_ *CLI) error {
	doc, err := config.GenerateSchema(model.ToolType(c.ToolType))
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	_, err = os.Stdout.Write(append(doc, '\n'))
	return err
}
