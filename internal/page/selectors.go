package page

import "github.com/ibeckermayer/dsltask/internal/browser"

// Task page selectors for the "apply now" control.
// The forum's markup is not stable, so these are tried in order and later
// entries are looser than earlier ones. Update these when discovery breaks.
var ApplySelectors = []browser.Selector{
	{Name: "class", CSS: `a.taskbtn`},
	{Name: "onclick", CSS: `a[onclick*='doane']`},
	{Name: "title", CSS: `a[title*='申请']`},
	{Name: "text", CSS: `a`, Text: "立即申请"},
}

// BotTestURL is the fingerprint audit page opened by the bot-test command.
const BotTestURL = "https://bot.sannysoft.com"
