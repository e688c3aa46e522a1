package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doclens/doclens/client"
)

func newFieldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Manage canonical field mappings",
	}
	cmd.AddCommand(newFieldsListCmd())
	cmd.AddCommand(newFieldsCreateCmd())
	cmd.AddCommand(newFieldsUpdateCmd())
	cmd.AddCommand(newFieldsDeleteCmd())
	cmd.AddCommand(newFieldsRefreshCmd())
	return cmd
}

func newFieldsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List canonical field mappings",
		Run: func(cmd *cobra.Command, args []string) {
			fields, err := apiClient.CanonicalFields.List(context.Background())
			if err != nil {
				fatal("list fields", err)
			}
			if flagFmt == "table" {
				printFieldTable(fields)
				return
			}
			output(fields, "")
		},
	}
}

func newFieldsCreateCmd() *cobra.Command {
	var (
		mappings []string
		aggType  string
		aliases  []string
	)

	cmd := &cobra.Command{
		Use:   "create <canonical-name>",
		Short: "Create a canonical field mapping",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fieldMap, err := parseMappings(mappings)
			if err != nil {
				fatal("create field", err)
			}

			created, err := apiClient.CanonicalFields.Create(context.Background(), client.CreateCanonicalFieldRequest{
				CanonicalName:   args[0],
				FieldMappings:   fieldMap,
				AggregationType: aggType,
				Aliases:         aliases,
			})
			if err != nil {
				fatal("create field", err)
			}
			output(created, created.ID)
		},
	}

	cmd.Flags().StringArrayVar(&mappings, "map", nil, "Template-to-field mapping as template=field (repeatable)")
	cmd.Flags().StringVar(&aggType, "agg", "sum", "Aggregation type: sum|avg|min|max|stats|terms|cardinality|date_histogram")
	cmd.Flags().StringArrayVar(&aliases, "alias", nil, "Alias for the canonical name (repeatable)")
	return cmd
}

func newFieldsUpdateCmd() *cobra.Command {
	var (
		mappings []string
		aggType  string
		aliases  []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a canonical field mapping",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req := client.UpdateCanonicalFieldRequest{Aliases: aliases}
			if len(mappings) > 0 {
				fieldMap, err := parseMappings(mappings)
				if err != nil {
					fatal("update field", err)
				}
				req.FieldMappings = fieldMap
			}
			if aggType != "" {
				req.AggregationType = &aggType
			}

			updated, err := apiClient.CanonicalFields.Update(context.Background(), args[0], req)
			if err != nil {
				fatal("update field", err)
			}
			output(updated, updated.ID)
		},
	}

	cmd.Flags().StringArrayVar(&mappings, "map", nil, "Template-to-field mapping as template=field (repeatable)")
	cmd.Flags().StringVar(&aggType, "agg", "", "Aggregation type")
	cmd.Flags().StringArrayVar(&aliases, "alias", nil, "Alias for the canonical name (repeatable)")
	return cmd
}

func newFieldsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a canonical field mapping",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.CanonicalFields.Delete(context.Background(), args[0]); err != nil {
				fatal("delete field", err)
			}
			output(map[string]string{"deleted": args[0]}, args[0])
		},
	}
}

func newFieldsRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload the canonical field registry from the server's store",
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.CanonicalFields.Refresh(context.Background()); err != nil {
				fatal("refresh fields", err)
			}
			output(map[string]string{"status": "refreshed"}, "refreshed")
		},
	}
}

// parseMappings converts template=field pairs into a map.
func parseMappings(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		template, field, ok := strings.Cut(pair, "=")
		if !ok || template == "" || field == "" {
			return nil, fmt.Errorf("invalid mapping %q, expected template=field", pair)
		}
		out[template] = field
	}
	return out, nil
}

func printFieldTable(fields []client.CanonicalField) {
	headers := []string{"ID", "NAME", "AGG", "TEMPLATES", "SYSTEM"}
	var rows [][]string
	for _, f := range fields {
		templates := make([]string, 0, len(f.FieldMappings))
		for t := range f.FieldMappings {
			templates = append(templates, t)
		}
		system := ""
		if f.IsSystem {
			system = "yes"
		}
		rows = append(rows, []string{f.ID, f.CanonicalName, f.AggregationType, strings.Join(templates, ","), system})
	}
	formatTable(headers, rows)
}
