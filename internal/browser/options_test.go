package browser

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/dsltask/internal/config"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().Browser
	cfg.ExecPath = "/usr/bin/chromium"

	opts := OptionsFromConfig(cfg)
	assert.True(t, opts.Headless)
	assert.Equal(t, "/usr/bin/chromium", opts.ExecPath)
	assert.Equal(t, 1920, opts.WindowWidth)
	assert.Equal(t, 1080, opts.WindowHeight)
	assert.Equal(t, cfg.UserAgent, opts.UserAgent)
}

func TestAllocatorOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)

	headful := AllocatorOptions(Options{})
	headless := AllocatorOptions(Options{Headless: true})
	withPath := AllocatorOptions(Options{Headless: true, ExecPath: "/opt/chrome"})

	assert.Greater(t, len(headful), base)
	assert.Len(t, headless, len(headful)+1)
	assert.Len(t, withPath, len(headless)+1)
}
