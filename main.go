// Command dsltask applies for the daily chinadsl.net forum task using a session
// cookie captured from a logged-in browser.
package main

import "github.com/ibeckermayer/dsltask/internal/cli"

func main() {
	cli.Execute()
}
