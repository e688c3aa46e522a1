package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doclens/doclens/client"
)

func newAskCmd() *cobra.Command {
	var (
		template string
		dateFrom string
		dateTo   string
		docIDs   []string
		page     int
		size     int
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a natural-language question over your documents",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			req := client.AskRequest{
				Question:    args[0],
				DocumentIDs: docIDs,
				Page:        page,
				Size:        size,
			}

			filters := map[string]any{}
			if template != "" {
				filters["template_name"] = template
			}
			if dateFrom != "" {
				filters["date_from"] = dateFrom
			}
			if dateTo != "" {
				filters["date_to"] = dateTo
			}
			if len(filters) > 0 {
				req.Filters = filters
			}

			answer, err := apiClient.Ask.Ask(ctx, req)
			if err != nil {
				fatal("ask", err)
			}

			if flagFmt == "table" {
				printAnswer(answer)
				return
			}
			output(answer, "")
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "Restrict to a document template")
	cmd.Flags().StringVar(&dateFrom, "from", "", "Earliest document date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dateTo, "to", "", "Latest document date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&docIDs, "doc", nil, "Restrict to specific document IDs (repeatable)")
	cmd.Flags().IntVar(&page, "page", 0, "Result page")
	cmd.Flags().IntVar(&size, "size", 0, "Results per page")
	return cmd
}

// printAnswer renders an answer for humans: intent line, result payload, then
// the audit summary.
func printAnswer(a *client.Answer) {
	fmt.Printf("Intent: %s", a.Intent)
	if a.CacheHit {
		fmt.Print("  (cached)")
	}
	if a.ExpansionAttempted {
		fmt.Print("  (synonym expansion)")
	}
	fmt.Println()

	switch {
	case a.AggregationResult != nil:
		printAggregation(a.AggregationResult)
	case a.ComparisonResult != nil:
		printComparison(a.ComparisonResult)
	default:
		printDocumentTable(a.Documents, a.Total)
	}

	if len(a.FieldLineage.QueriedFields) > 0 {
		fmt.Printf("\nFields queried: %s\n", strings.Join(a.FieldLineage.QueriedFields, ", "))
	}
	if a.AuditItemsTotalCount > 0 {
		fmt.Printf("Low-confidence fields: %d relevant of %d in matched documents\n",
			a.AuditItemsFilteredCount, a.AuditItemsTotalCount)
		for _, item := range a.AuditItems {
			fmt.Printf("  %s.%s = %q (confidence %.2f)\n",
				item.DocumentID, item.FieldName, item.FieldValue, item.Confidence)
		}
	}
}

func printDocumentTable(docs []client.Document, total int) {
	headers := []string{"ID", "TEMPLATE", "TITLE", "DATE"}
	var rows [][]string
	for _, d := range docs {
		date := ""
		if d.DocumentDate != nil {
			date = d.DocumentDate.Format("2006-01-02")
		}
		rows = append(rows, []string{d.ID, d.TemplateName, d.Title, date})
	}
	formatTable(headers, rows)
	fmt.Printf("\n%d document(s) total\n", total)
}

func printAggregation(r *client.AggregationResult) {
	switch {
	case r.Stats != nil:
		fmt.Printf("%s: sum=%.2f avg=%.2f min=%.2f max=%.2f count=%d\n",
			r.Type, r.Stats.Sum, r.Stats.Avg, r.Stats.Min, r.Stats.Max, r.Stats.Count)
	case len(r.Buckets) > 0:
		headers := []string{"KEY", "COUNT"}
		var rows [][]string
		for _, b := range r.Buckets {
			key := b.Key
			if b.KeyAsString != "" {
				key = b.KeyAsString
			}
			rows = append(rows, []string{key, fmt.Sprintf("%d", b.DocCount)})
		}
		formatTable(headers, rows)
	case r.Cardinality != nil:
		fmt.Printf("%s: %d\n", r.Type, *r.Cardinality)
	case len(r.Percentiles) > 0:
		for p, v := range r.Percentiles {
			fmt.Printf("  p%s = %.2f\n", p, v)
		}
	}
}

func printComparison(r *client.ComparisonResult) {
	fmt.Printf("%s: %.2f (%d docs)\n", r.Period1.Name, r.Period1.Value, r.Period1.Count)
	fmt.Printf("%s: %.2f (%d docs)\n", r.Period2.Name, r.Period2.Value, r.Period2.Count)
	if r.Change.Percentage != nil {
		fmt.Printf("Change: %+.2f (%+.1f%%, %s)\n", r.Change.Absolute, *r.Change.Percentage, r.Change.Trend)
	} else {
		fmt.Printf("Change: %+.2f (%s)\n", r.Change.Absolute, r.Change.Trend)
	}
}
