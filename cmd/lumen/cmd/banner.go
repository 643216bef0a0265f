package cmd

import (
	"fmt"
)

const banner = `
  _
 | |    _   _ _ __ ___   ___ _ __
 | |   | | | | '_ ` + "`" + ` _ \ / _ \ '_ \
 | |___| |_| | | | | | |  __/ | | |
 |_____|\__,_|_| |_| |_|\___|_| |_|

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Personal Journal - Version %s\x1b[0m\n\n", Version)
}
