package htmlx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleComicPage = `
<html><body>
<div class="chapter-tab"><span class="active">单话</span></div>
<div class="chapter-list-tab-content">
  <ul>
    <li><a href="/comic/1/100.html">第一话</a></li>
    <li><a href="/comic/1/101.html">第二话</a></li>
  </ul>
</div>
</body></html>
`

func TestExtractComicChaptersGroupsByTab(t *testing.T) {
	groups, err := New().ExtractComicChapters(sampleComicPage, 1, "测试漫画", "连载中")
	require.NoError(t, err)
	require.Contains(t, groups, "单话")

	chapters := groups["单话"]
	require.Len(t, chapters, 2)
	assert.EqualValues(t, 100, chapters[0].ChapterID)
	assert.Equal(t, "第一话", chapters[0].ChapterTitle)
	assert.Equal(t, "1", chapters[0].Order)
	assert.Equal(t, 2, chapters[0].GroupSize)
}

func TestExtractComicChaptersErrorsOnEmptyPage(t *testing.T) {
	_, err := New().ExtractComicChapters("<html></html>", 1, "x", "y")
	require.Error(t, err)
}

const sampleSearchPage = `
<html><body>
<div class="book-result">
  <img src="https://cdn.example/cover.jpg"/>
  <div class="book-detail">
    <h3><a href="/comic/42/">示例漫画</a></h3>
    <a href="/author/1/">作者甲</a>
    <p class="tt">第十话</p>
  </div>
</div>
</body></html>
`

func TestExtractSearchResults(t *testing.T) {
	results, err := New().ExtractSearchResults(sampleSearchPage)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.EqualValues(t, 42, results[0].ID)
	assert.Equal(t, "示例漫画", results[0].Title)
	assert.Equal(t, []string{"作者甲"}, results[0].Authors)
}
