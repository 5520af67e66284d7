package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/dsltask/internal/config"
)

func parse(t *testing.T, html string) *Snapshot {
	t.Helper()
	s, err := Parse(html)
	require.NoError(t, err)
	return s
}

func TestSnapshotTextSkipsScripts(t *testing.T) {
	s := parse(t, `<html><head><script>var x = "登录 注册";</script><style>.a{}</style></head>
		<body><p>欢迎</p></body></html>`)

	assert.Contains(t, s.Text(), "欢迎")
	assert.NotContains(t, s.Text(), "登录")
}

func TestLogin(t *testing.T) {
	markers := config.Default().Markers

	tests := []struct {
		name string
		html string
		want LoginState
	}{
		{
			name: "logout link",
			html: `<body><a href="member.php?mod=logging&action=logout&formhash=1">退出</a></body>`,
			want: LoggedIn,
		},
		{
			name: "profile link",
			html: `<body><a href="home.php?mod=space&do=profile">资料</a></body>`,
			want: LoggedIn,
		},
		{
			name: "logout text only",
			html: `<body><span>退出</span></body>`,
			want: LoggedIn,
		},
		{
			name: "login and register links",
			html: `<body><a href="member.php?mod=logging&action=login">登录</a><a href="member.php?mod=register">注册</a></body>`,
			want: LoggedOut,
		},
		{
			name: "logged out markers win",
			html: `<body><a href="member.php?action=logout">退出</a><a>登录</a><a>注册</a></body>`,
			want: LoggedOut,
		},
		{
			name: "login without register",
			html: `<body><a>登录</a></body>`,
			want: LoginUnknown,
		},
		{
			name: "blank page",
			html: `<html><body></body></html>`,
			want: LoginUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parse(t, tt.html).Login(markers))
		})
	}
}

func TestVerdict(t *testing.T) {
	markers := config.Default().Markers

	tests := []struct {
		name string
		html string
		want Verdict
	}{
		{"applied zh", `<div id="messagetext"><p>任务申请成功</p></div>`, VerdictApplied},
		{"task complete zh", `<p>恭喜您，任务完成</p>`, VerdictApplied},
		{"applied en", `<p>Task applied successfully.</p>`, VerdictApplied},
		{"already zh", `<p>您已申请过此任务</p>`, VerdictAlreadyApplied},
		{"already en", `<p>You have already applied.</p>`, VerdictAlreadyApplied},
		{"success wins", `<p>申请成功</p><p>已申请</p>`, VerdictApplied},
		{"neither", `<p>系统繁忙</p>`, VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parse(t, tt.html).Verdict(markers))
		})
	}
}

func TestVerdictStrings(t *testing.T) {
	assert.Equal(t, "applied", VerdictApplied.String())
	assert.Equal(t, "already_applied", VerdictAlreadyApplied.String())
	assert.Equal(t, "unknown", VerdictUnknown.String())
	assert.Equal(t, "logged_out", LoggedOut.String())
}

func TestOnCooldown(t *testing.T) {
	phrases := config.Default().Markers.Cooldown

	assert.True(t, OnCooldown("2026-10-16 08:00 后可以再次申请", "", phrases))
	assert.True(t, OnCooldown("", "showDialog('available again after 08:00')", phrases))
	assert.False(t, OnCooldown("立即申请", "doane(this)", phrases))
	assert.False(t, OnCooldown("anything", "anything", []string{""}))
}

func TestMatchingAndContainsAll(t *testing.T) {
	s := parse(t, `<p>任务已完成</p>`)

	assert.Equal(t, []string{"任务已完成"}, s.Matching([]string{"任务已完成", "已申请", ""}))
	assert.False(t, s.ContainsAll(nil))
	assert.True(t, s.ContainsAll([]string{"任务", "完成"}))
}

func TestApplySelectorOrder(t *testing.T) {
	names := make([]string, 0, len(ApplySelectors))
	for _, sel := range ApplySelectors {
		names = append(names, sel.Name)
	}
	assert.Equal(t, []string{"class", "onclick", "title", "text"}, names)
}
