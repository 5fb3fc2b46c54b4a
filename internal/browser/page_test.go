package browser_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/svetserialu/internal/browser"
	"github.com/alvarorichard/svetserialu/internal/browser/browsertest"
)

func TestClickIfPresent(t *testing.T) {
	t.Parallel()

	fake := browsertest.New(map[string]*browsertest.PageScript{
		"https://site/": {
			HTML: `<div class="LangHeader langCZ">CZ</div>`,
			OnClick: map[string]browsertest.Action{
				".langCZ": {HTML: `<div class="tabshe8"><ul class="tabs"><li>1</li></ul></div>`},
			},
		},
	})

	page, err := fake.NewPage(context.Background(), browser.StealthProfile())
	require.NoError(t, err)
	defer page.Close()
	require.NoError(t, page.Goto("https://site/", browser.GotoOptions{}))

	ok, err := browser.ClickIfPresent(page, ".cz-dabing", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = browser.ClickIfPresent(page, ".langCZ", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = page.Exists(".tabshe8 ul.tabs li")
	require.NoError(t, err)
	assert.True(t, ok)
}
