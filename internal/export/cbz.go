// CBZ export packages a downloaded chapter's images plus a ComicInfo.xml
// sidecar into a single zip archive. No pack repo ships a higher-level
// "CBZ with metadata" library (only raw zip/tar helpers), and a CBZ is
// just a zip by convention, so this is the one export concern built on
// the standard library's archive/zip rather than a third-party package
// (see DESIGN.md).
package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// CBZ packages the images in chapterDir (as laid out by layout.Layout)
// into a single .cbz at l.CBZPath(ch), embedding a ComicInfo.xml built
// from ch and the optional parent comic.
func CBZ(l layout.Layout, bus *events.Bus, uuid string, ch model.ChapterInfo, comic *model.Comic) error {
	srcDir := l.FinalChapterDir(ch)
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("reading chapter dir %s: %w", srcDir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	dst := l.CBZPath(ch)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	total := len(names)
	emit := func(phase events.ExportCbzPhase, current int) {
		if bus != nil {
			bus.Emit(events.KindExportCbz, events.ExportCbz{
				Phase: phase, UUID: uuid, ComicTitle: ch.ComicTitle, Current: current, Total: total,
			})
		}
	}
	emit(events.ExportCbzStart, 0)

	for i, name := range names {
		if err := copyIntoZip(zw, filepath.Join(srcDir, name), name); err != nil {
			return fmt.Errorf("adding %s to cbz: %w", name, err)
		}
		emit(events.ExportCbzProgress, i+1)
	}

	ci := BuildComicInfo(ch, comic)
	xmlBytes, err := ci.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling ComicInfo.xml: %w", err)
	}
	w, err := zw.Create("ComicInfo.xml")
	if err != nil {
		return fmt.Errorf("creating ComicInfo.xml entry: %w", err)
	}
	if _, err := w.Write(xmlBytes); err != nil {
		return fmt.Errorf("writing ComicInfo.xml entry: %w", err)
	}

	emit(events.ExportCbzEnd, total)
	return nil
}

func copyIntoZip(zw *zip.Writer, srcPath, name string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
