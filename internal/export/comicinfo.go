// ComicInfo.xml is the de-facto metadata sidecar format CBZ readers
// (Kavita, ComicRack, Komga) understand. We emit the minimal field subset
// a chapter archive needs: Series/Title/Number identify a chapter within
// its comic, and Volume distinguishes the 单行本 group from loose 单话
// chapters.
package export

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// ComicInfo is the root element of ComicInfo.xml.
type ComicInfo struct {
	XMLName xml.Name `xml:"ComicInfo"`
	Series  string   `xml:"Series"`
	Title   string   `xml:"Title"`
	Number  string   `xml:"Number,omitempty"`
	Volume  int      `xml:"Volume,omitempty"`
	Summary string   `xml:"Summary,omitempty"`
	Writer  string   `xml:"Writer,omitempty"`
	Genre   string   `xml:"Genre,omitempty"`
	Web     string   `xml:"Web,omitempty"`
	Format  string   `xml:"Format,omitempty"`
}

// BuildComicInfo maps a ChapterInfo (plus its parent Comic, when known)
// onto the ComicInfo.xml schema. A 单行本 group's Order is treated as the
// Volume number since the site uses it as a volume index rather than a
// chapter ordinal; every other group is treated as loose chapters and
// populates Number instead.
func BuildComicInfo(ch model.ChapterInfo, comic *model.Comic) ComicInfo {
	ci := ComicInfo{
		Series: ch.ComicTitle,
		Title:  ch.ChapterTitle,
	}

	if ch.GroupName == model.GroupVolume {
		if vol, err := strconv.Atoi(strings.TrimSuffix(ch.Order, ".0")); err == nil {
			ci.Volume = vol
		}
		ci.Format = "Volume"
	} else {
		ci.Number = ch.Order
	}

	if comic != nil {
		ci.Summary = comic.Intro
		ci.Writer = strings.Join(comic.Authors, ", ")
		ci.Genre = strings.Join(comic.Genres, ", ")
	}
	return ci
}

// Marshal renders ci as an XML document with the conventional header.
func (ci ComicInfo) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(ci, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
