// cmd/phredavg/main.go
package main

import (
	"phredavg/internal/app"
	"phredavg/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
