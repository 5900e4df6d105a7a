// PDF export follows SirZenith-delite's cmd/bundle/manga_pdf bundler: one
// page per image, sized to the image's own dimensions via
// gopdf.ImageObj.GetRect, no cropping.
// A group merge re-renders every chapter's images into one PDF and adds
// an outline bookmark at each chapter's first page, so a reader can jump
// straight to a chapter; it does not read the per-chapter PDFs.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/signintech/gopdf"

	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// ChapterPDF renders every image in the chapter's final directory into a
// single PDF at l.ChapterPDFPath(ch), one page per image.
func ChapterPDF(l layout.Layout, bus *events.Bus, uuid string, ch model.ChapterInfo) error {
	srcDir := l.FinalChapterDir(ch)
	names, err := imageNames(srcDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("chapter dir %s contains no images", srcDir)
	}

	dst := l.ChapterPDFPath(ch)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	total := len(names)
	emit := func(phase events.ExportPdfPhase, current int) {
		if bus != nil {
			bus.Emit(events.KindExportPdf, events.ExportPdf{
				Phase: phase, UUID: uuid, ComicTitle: ch.ComicTitle, Current: current, Total: total,
			})
		}
	}
	emit(events.ExportPdfCreateStart, 0)

	for i, name := range names {
		imgPath := filepath.Join(srcDir, name)
		imgObj := new(gopdf.ImageObj)
		if err := imgObj.SetImagePath(imgPath); err != nil {
			return fmt.Errorf("loading image %s: %w", imgPath, err)
		}
		rect := imgObj.GetRect()
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: rect})
		if err := pdf.Image(imgPath, 0, 0, rect); err != nil {
			return fmt.Errorf("placing image %s: %w", imgPath, err)
		}
		emit(events.ExportPdfCreateProgress, i+1)
	}

	if err := pdf.WritePdf(dst); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	emit(events.ExportPdfCreateEnd, total)
	return nil
}

func imageNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[filepath.Ext(e.Name())] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// MergeGroupPDF builds one bookmarked PDF at l.GroupPDFPath covering
// every chapter in the group, in reading order. Rather than importing the
// already-rendered per-chapter PDFs (gopdf's template-import API is not
// exercised elsewhere in the pack and its page-box semantics are easy to
// get subtly wrong), it re-renders each chapter's source images directly
// into the merged document — the same SetImagePath/Image sequence
// ChapterPDF uses — and drops one outline bookmark at the first page of
// each chapter.
func MergeGroupPDF(l layout.Layout, bus *events.Bus, uuid, comicTitle, groupName string, chapters []model.ChapterInfo) error {
	if len(chapters) == 0 {
		return fmt.Errorf("no chapters to merge for group %s", groupName)
	}

	dst := l.GroupPDFPath(comicTitle, groupName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	total := len(chapters)
	emit := func(phase events.ExportPdfPhase, current int) {
		if bus != nil {
			bus.Emit(events.KindExportPdf, events.ExportPdf{
				Phase: phase, UUID: uuid, ComicTitle: comicTitle, Current: current, Total: total,
			})
		}
	}
	emit(events.ExportPdfMergeStart, 0)

	for i, ch := range chapters {
		srcDir := l.FinalChapterDir(ch)
		names, err := imageNames(srcDir)
		if err != nil {
			return err
		}
		for p, name := range names {
			imgPath := filepath.Join(srcDir, name)
			imgObj := new(gopdf.ImageObj)
			if err := imgObj.SetImagePath(imgPath); err != nil {
				return fmt.Errorf("loading image %s: %w", imgPath, err)
			}
			rect := imgObj.GetRect()
			pdf.AddPageWithOption(gopdf.PageOption{PageSize: rect})
			if err := pdf.Image(imgPath, 0, 0, rect); err != nil {
				return fmt.Errorf("placing image %s: %w", imgPath, err)
			}
			if p == 0 {
				pdf.AddOutlineWithPosition(ch.PrefixedChapterTitle())
			}
		}
		emit(events.ExportPdfMergeProgress, i+1)
	}

	if err := pdf.WritePdf(dst); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	emit(events.ExportPdfMergeEnd, total)
	return nil
}
