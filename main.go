/*
Pathviz animates breadth-first and depth-first search over a small grid in the browser.
The user paints walls and moves the start and end cells, then starts either traversal and
watches it reveal the grid one visited cell at a time, along with how long each run took.
The server owns the grid: the page is a thin view, pushed element updates over a websocket
and sending its clicks back as commands, so any number of pages can watch the same grid.
The same session can be driven over a small REST api, or headless from the command line.
*/
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
