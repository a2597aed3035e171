// movierec 是基于协同过滤的电影推荐命令行工具。
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
