package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docchat-be/internal/dto"
	"docchat-be/internal/pkg/serverutils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	ingestFile  string
	ingestTitle string

	statusDocument string

	listStatus string
	listLimit  int
	listOffset int
)

// ingestCmd implements 'ingest', which extracts, chunks, embeds and indexes one file.
var ingestCmd = pipelineCommand(&cobra.Command{
	Use:   "ingest",
	Short: "Ingest a document and index it for chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(ingestFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", ingestFile, err)
		}
		title := ingestTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(ingestFile), filepath.Ext(ingestFile))
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", faint("ingesting"), ingestFile)
		res, err := container.IngestionService.Ingest(ctx, title, filepath.Base(ingestFile), content)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %d chunks  %s\n",
			success("ingested"), res.DocumentId, res.Chunks, colorStatus(res.Status))
		return nil
	},
})

// statusCmd implements 'status', which prints a document and its last reported progress.
var statusCmd = pipelineCommand(&cobra.Command{
	Use:   "status",
	Short: "Show the lifecycle status of a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(statusDocument)
		if err != nil {
			return fmt.Errorf("invalid document id %q", statusDocument)
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		doc, err := container.DocumentService.Show(ctx, id)
		if err != nil {
			return err
		}
		printDocument(cmd.OutOrStdout(), doc)

		prog, err := container.DocumentService.Progress(ctx, id)
		if err != nil {
			return err
		}
		printProgress(cmd.OutOrStdout(), prog)
		return nil
	},
})

// listCmd implements 'list', newest documents first.
var listCmd = pipelineCommand(&cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &dto.ListDocumentsRequest{
			Status: strings.ToUpper(listStatus),
			Limit:  listLimit,
			Offset: listOffset,
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		res, err := container.DocumentService.List(ctx, req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(res.Documents) == 0 {
			fmt.Fprintln(out, faint("no documents"))
			return nil
		}
		for _, doc := range res.Documents {
			fmt.Fprintf(out, "%-36s  %-10s  %5d  %s\n", doc.Id, colorStatus(doc.Status), doc.Chunks, doc.Title)
		}
		fmt.Fprintf(out, "%s\n", faint(fmt.Sprintf("%d of %d", len(res.Documents), res.Total)))
		return nil
	},
})

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "path of the document to ingest")
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (defaults to the file name)")
	_ = ingestCmd.MarkFlagRequired("file")

	statusCmd.Flags().StringVarP(&statusDocument, "document", "d", "", "document id")
	_ = statusCmd.MarkFlagRequired("document")

	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (PROCESSING, READY, FAILED)")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "page size")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "page offset")

	rootCmd.AddCommand(ingestCmd, statusCmd, listCmd)
}
