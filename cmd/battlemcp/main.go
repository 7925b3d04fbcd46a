// Command battlemcp serves battle tools over MCP.
package main

import (
	"github.com/triplea-game/triplea-sub001/internal/cmd/battlemcp"
	entrypoint "github.com/triplea-game/triplea-sub001/internal/platform/cmd"
)

func main() {
	entrypoint.Main(entrypoint.ServiceBattleMCP, battlemcp.Main)
}
