package main

import (
	"encoding/json"
	"reflect"

	"github.com/spf13/cobra"
)

// writeJSON prints v as indented JSON for `--json` flags. A nil slice prints
// as [] so `records list --json` on an empty ledger stays an array.
func writeJSON(cmd *cobra.Command, v any) error {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.IsNil() {
		v = []any{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
