// Package htmlx parses the HTML pages the site serves into the model
// types the download core operates on. It is intentionally thin plumbing
// over goquery, mirroring the selector style of the pack's manga scrapers
// (adamfitz-kansho/sites and SirZenith-delite's book_dl site adapters).
package htmlx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// HtmlExtractor is the contract the download core depends on for turning
// raw page HTML into structured data.
type HtmlExtractor interface {
	ExtractComicChapters(html string, comicID int64, comicTitle, comicStatus string) (map[string][]model.ChapterInfo, error)
	ExtractSearchResults(html string) ([]model.SearchResult, error)
}

// Extractor is the goquery-based HtmlExtractor implementation.
type Extractor struct{}

// New builds an Extractor.
func New() Extractor { return Extractor{} }

// ExtractComicChapters parses a comic profile page's chapter lists,
// grouped by the site's group tab (单话/单行本/...). Each group's <ul> is
// read in site document order, which lists chapters oldest-first; Order
// is the anchor's 1-based position within the group. No ordinal is read
// from the anchor itself, so Order is always a whole number.
func (Extractor) ExtractComicChapters(html string, comicID int64, comicTitle, comicStatus string) (map[string][]model.ChapterInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing comic page: %w", err)
	}

	groups := make(map[string][]model.ChapterInfo)

	doc.Find(".chapter-list-tab-content").Each(func(groupIdx int, groupSel *goquery.Selection) {
		groupName := strings.TrimSpace(groupSel.Prev().Find(".active").Text())
		if groupName == "" {
			groupName = model.GroupSingle
		}

		var chapters []model.ChapterInfo
		groupSel.Find("a[href]").Each(func(i int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			chapterID, ok := parseChapterIDFromHref(href)
			if !ok {
				return
			}
			chapters = append(chapters, model.ChapterInfo{
				ChapterID:    chapterID,
				ComicID:      comicID,
				ComicTitle:   comicTitle,
				GroupName:    groupName,
				ChapterTitle: strings.TrimSpace(a.Text()),
				Order:        strconv.Itoa(i + 1),
				ComicStatus:  comicStatus,
			})
		})

		if len(chapters) == 0 {
			return
		}
		for i := range chapters {
			chapters[i].GroupSize = len(chapters)
		}
		groups[groupName] = chapters
	})

	if len(groups) == 0 {
		return nil, fmt.Errorf("no chapter groups found on comic page")
	}
	total := 0
	for _, cs := range groups {
		total += len(cs)
	}
	for name := range groups {
		for i := range groups[name] {
			groups[name][i].ChapterSize = total
		}
	}
	return groups, nil
}

// parseChapterIDFromHref extracts the numeric chapter id from an anchor
// href of the shape "/comic/<comicId>/<chapterId>.html".
func parseChapterIDFromHref(href string) (int64, bool) {
	href = strings.TrimSuffix(href, ".html")
	idx := strings.LastIndex(href, "/")
	if idx < 0 || idx == len(href)-1 {
		return 0, false
	}
	id, err := strconv.ParseInt(href[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ExtractSearchResults parses a search results listing page.
func (Extractor) ExtractSearchResults(html string) ([]model.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing search page: %w", err)
	}

	var results []model.SearchResult
	doc.Find(".book-result .book-detail").Each(func(i int, sel *goquery.Selection) {
		titleAnchor := sel.Find("h3 a").First()
		href, _ := titleAnchor.Attr("href")
		id, ok := parseComicIDFromHref(href)
		if !ok {
			return
		}

		var authors []string
		sel.Find("a[href^='/author/']").Each(func(_ int, a *goquery.Selection) {
			if t := strings.TrimSpace(a.Text()); t != "" {
				authors = append(authors, t)
			}
		})

		cover, _ := sel.Parent().Find("img").Attr("src")

		results = append(results, model.SearchResult{
			ID:                id,
			Title:             strings.TrimSpace(titleAnchor.Text()),
			Cover:             cover,
			Authors:           authors,
			LastUpdateChapter: strings.TrimSpace(sel.Find(".tt").Text()),
		})
	})
	return results, nil
}

// ExtractComicProfile parses a comic page's own metadata (title, cover,
// status, authors, genres, intro) — everything ExtractComicChapters takes
// as opaque parameters rather than parses itself. Kept as a separate,
// non-interface method since only the CLI's comic/download commands
// need a full Comic record; the download core only ever needs the
// chapter list.
func (Extractor) ExtractComicProfile(html string, comicID int64) (model.Comic, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.Comic{}, fmt.Errorf("parsing comic page: %w", err)
	}

	comic := model.Comic{
		ID:     comicID,
		Title:  strings.TrimSpace(doc.Find(".book-title h1").First().Text()),
		Cover:  firstAttr(doc.Find(".book-cover img").First(), "src"),
		Status: strings.TrimSpace(doc.Find(".book-detail .status span").First().Text()),
		Intro:  strings.TrimSpace(doc.Find("#intro-all").First().Text()),
	}

	doc.Find(".detail-list li").Each(func(_ int, li *goquery.Selection) {
		label := strings.TrimSpace(li.Find("strong").First().Text())
		li.Find("a").Each(func(_ int, a *goquery.Selection) {
			text := strings.TrimSpace(a.Text())
			if text == "" {
				return
			}
			switch label {
			case "漫画作者:":
				comic.Authors = append(comic.Authors, text)
			case "漫画剧情:":
				comic.Genres = append(comic.Genres, text)
			}
		})
	})

	return comic, nil
}

func firstAttr(sel *goquery.Selection, attr string) string {
	v, _ := sel.Attr(attr)
	return v
}

// parseComicIDFromHref extracts the numeric comic id from an anchor href
// of the shape "/comic/<comicId>/".
func parseComicIDFromHref(href string) (int64, bool) {
	href = strings.Trim(href, "/")
	idx := strings.LastIndex(href, "/")
	if idx < 0 || idx == len(href)-1 {
		return 0, false
	}
	id, err := strconv.ParseInt(href[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

var _ HtmlExtractor = Extractor{}
