package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jsreport/jsreport-designer-sub001/compiler"
)

type componentsOptions struct {
	jsonOutput bool
	builtins   bool
}

func newComponentsCmd(root *rootFlags) *cobra.Command {
	opts := &componentsOptions{}

	cmd := &cobra.Command{
		Use:   "components",
		Short: "列出已注册的组件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComponents(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "以 JSON 输出")
	cmd.Flags().BoolVar(&opts.builtins, "builtins", false, "列出模板内置助手而不是组件")

	return cmd
}

type componentInfo struct {
	Name    string   `json:"name"`
	Props   []string `json:"props"`
	Helpers bool     `json:"helpers"`
}

func runComponents(cmd *cobra.Command, root *rootFlags, opts *componentsOptions) error {
	if opts.builtins {
		return printBuiltins(cmd, opts)
	}
	a, err := newApp(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	infos := make([]componentInfo, 0, a.registry.Len())
	for _, name := range a.registry.Names() {
		props, _ := a.registry.DefaultProps(name, nil)
		def, _ := a.registry.Get(name)
		infos = append(infos, componentInfo{
			Name:    name,
			Props:   sortedKeys(props),
			Helpers: def.HelperSource() != "",
		})
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPROPS\tHELPERS")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%v\t%t\n", info.Name, info.Props, info.Helpers)
	}
	return w.Flush()
}

func printBuiltins(cmd *cobra.Command, opts *componentsOptions) error {
	names := compiler.Builtins()
	if opts.jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(names)
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
