package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ibeckermayer/dsltask/internal/browser"
	"github.com/ibeckermayer/dsltask/internal/browser/browsertest"
	"github.com/ibeckermayer/dsltask/internal/config"
	"github.com/ibeckermayer/dsltask/internal/page"
)

func TestParseCookieHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Cookie
	}{
		{
			name:  "mixed fragments",
			input: "a=1; b=2=x; malformed; c=3",
			want:  []Cookie{{"a", "1"}, {"b", "2=x"}, {"c", "3"}},
		},
		{
			name:  "whitespace trimmed",
			input: "  sid =  abc  ;\tuid=7 ",
			want:  []Cookie{{"sid", "abc"}, {"uid", "7"}},
		},
		{
			name:  "empty value kept",
			input: "flag=",
			want:  []Cookie{{"flag", ""}},
		},
		{
			name:  "empty name dropped",
			input: "=orphan; k=v",
			want:  []Cookie{{"k", "v"}},
		},
		{
			name:  "trailing separator",
			input: "k=v;",
			want:  []Cookie{{"k", "v"}},
		},
		{
			name:  "nothing usable",
			input: "; ;junk",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCookieHeader(tt.input))
		})
	}
}

func TestForDomain(t *testing.T) {
	got := ForDomain([]Cookie{{"a", "1"}}, ".chinadsl.net")
	assert.Equal(t, []browser.Cookie{{Name: "a", Value: "1", Domain: ".chinadsl.net", Path: "/"}}, got)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Waits.PageSettle = config.Duration{Duration: 50 * time.Millisecond}
	cfg.Waits.PollInterval = config.Duration{Duration: time.Millisecond}
	cfg.Waits.MaxPollInterval = config.Duration{Duration: 5 * time.Millisecond}
	return cfg
}

func TestInjectCookies(t *testing.T) {
	cfg := testConfig()
	fake := browsertest.New(map[string]string{cfg.Site.BaseURL: "<body></body>"})
	fake.CookieErrors["bad"] = errors.New("invalid cookie")
	fake.Jar = []browser.Cookie{{Name: "stale", Domain: ".chinadsl.net"}}

	core, logs := observer.New(zap.DebugLevel)
	m := NewManager(fake, cfg, zap.New(core))

	n, err := m.InjectCookies(context.Background(), ParseCookieHeader("a=1; bad=2; c=3"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{
		"navigate " + cfg.Site.BaseURL,
		"clear_cookies",
		"set_cookie a",
		"set_cookie bad",
		"set_cookie c",
		"cookies",
	}, fake.CallLog())

	require.Len(t, fake.Jar, 2)
	for _, c := range fake.Jar {
		assert.Equal(t, ".chinadsl.net", c.Domain)
		assert.Equal(t, "/", c.Path)
	}

	warn := logs.FilterMessage("Failed to set cookie").All()
	require.Len(t, warn, 1)
	assert.Equal(t, "bad", warn[0].ContextMap()["name"])
}

func TestInjectCookiesWithoutClearing(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.ClearCookies = false
	fake := browsertest.New(map[string]string{cfg.Site.BaseURL: "<body></body>"})

	m := NewManager(fake, cfg, zap.NewNop())
	_, err := m.InjectCookies(context.Background(), ParseCookieHeader("a=1"))
	require.NoError(t, err)
	assert.Zero(t, fake.Called("clear_cookies"))
}

func TestInjectCookiesClearFailureIsNotFatal(t *testing.T) {
	cfg := testConfig()
	fake := browsertest.New(map[string]string{cfg.Site.BaseURL: "<body></body>"})
	fake.Errors["clear_cookies"] = errors.New("nope")

	m := NewManager(fake, cfg, zap.NewNop())
	n, err := m.InjectCookies(context.Background(), ParseCookieHeader("a=1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInjectCookiesNavigateFailure(t *testing.T) {
	cfg := testConfig()
	fake := browsertest.New(nil)
	fake.Errors["navigate"] = errors.New("dns failure")

	m := NewManager(fake, cfg, zap.NewNop())
	_, err := m.InjectCookies(context.Background(), ParseCookieHeader("a=1"))
	assert.EqualError(t, err, "dns failure")
	assert.Zero(t, fake.Called("set_cookie"))
}

func TestCheckLogin(t *testing.T) {
	cfg := testConfig()
	url := cfg.Site.UserSpaceURL()

	tests := []struct {
		name string
		html string
		want page.LoginState
	}{
		{"logged in", `<a href="member.php?mod=logging&action=logout">退出</a>`, page.LoggedIn},
		{"logged out", `<a>登录</a> <a>注册</a>`, page.LoggedOut},
		{"undecided", `<p>loading</p>`, page.LoginUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := browsertest.New(map[string]string{url: tt.html})
			m := NewManager(fake, cfg, zap.NewNop())

			state, err := m.CheckLogin(context.Background(), url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
			assert.Equal(t, 1, fake.Called("navigate "+url))
		})
	}
}

func TestCheckLoginHTMLFailure(t *testing.T) {
	cfg := testConfig()
	fake := browsertest.New(map[string]string{cfg.Site.BaseURL: ""})
	fake.Errors["html"] = errors.New("target closed")

	m := NewManager(fake, cfg, zap.NewNop())
	state, err := m.CheckLogin(context.Background(), cfg.Site.BaseURL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "target closed")
	assert.Equal(t, page.LoginUnknown, state)
}
