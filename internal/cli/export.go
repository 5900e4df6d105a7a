package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lanyeeee/manhuagui-downloader/internal/export"
	"github.com/lanyeeee/manhuagui-downloader/internal/metadata"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

func newExportCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Repackage downloaded chapters into CBZ or PDF",
	}
	cmd.AddCommand(newExportCBZCmd(ctx, ro))
	cmd.AddCommand(newExportPDFCmd(ctx, ro))
	return cmd
}

func loadDownloadedComic(a *app, comicTitle string) (*model.Comic, error) {
	comic, err := metadata.Read(a.layout, comicTitle)
	if err != nil {
		return nil, fmt.Errorf("reading metadata for %s: %w", comicTitle, err)
	}
	if comic == nil {
		return nil, fmt.Errorf("no metadata found for %q; has anything been downloaded yet?", comicTitle)
	}
	return comic, nil
}

func newExportCBZCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "cbz COMIC_TITLE",
		Short: "Export every downloaded chapter of a comic as CBZ archives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx, ro)
			if err != nil {
				return err
			}
			comic, err := loadDownloadedComic(a, args[0])
			if err != nil {
				return err
			}

			count := 0
			for _, chapters := range comic.Groups {
				for _, ch := range chapters {
					if !a.layout.IsDownloaded(ch) {
						continue
					}
					if err := export.CBZ(a.layout, a.bus, uuid.NewString(), ch, comic); err != nil {
						return fmt.Errorf("exporting %s: %w", ch.PrefixedChapterTitle(), err)
					}
					count++
				}
			}
			fmt.Printf("exported %d chapter(s) to CBZ\n", count)
			return nil
		},
	}
}

func newExportPDFCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var merge bool

	cmd := &cobra.Command{
		Use:   "pdf COMIC_TITLE",
		Short: "Export downloaded chapters of a comic as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx, ro)
			if err != nil {
				return err
			}
			comic, err := loadDownloadedComic(a, args[0])
			if err != nil {
				return err
			}

			if merge {
				for group, chapters := range comic.Groups {
					var downloaded []model.ChapterInfo
					for _, ch := range chapters {
						if a.layout.IsDownloaded(ch) {
							downloaded = append(downloaded, ch)
						}
					}
					if len(downloaded) == 0 {
						continue
					}
					if err := export.MergeGroupPDF(a.layout, a.bus, uuid.NewString(), comic.Title, group, downloaded); err != nil {
						return fmt.Errorf("merging group %s: %w", group, err)
					}
					fmt.Printf("merged %d chapter(s) into group %q PDF\n", len(downloaded), group)
				}
				return nil
			}

			count := 0
			for _, chapters := range comic.Groups {
				for _, ch := range chapters {
					if !a.layout.IsDownloaded(ch) {
						continue
					}
					if err := export.ChapterPDF(a.layout, a.bus, uuid.NewString(), ch); err != nil {
						return fmt.Errorf("exporting %s: %w", ch.PrefixedChapterTitle(), err)
					}
					count++
				}
			}
			fmt.Printf("exported %d chapter(s) to PDF\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "merge each group's chapter PDFs into one bookmarked PDF instead of per-chapter files")
	return cmd
}
