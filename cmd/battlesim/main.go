// Command battlesim simulates or fights a Lua battle scenario.
package main

import (
	"github.com/triplea-game/triplea-sub001/internal/cmd/battlesim"
	entrypoint "github.com/triplea-game/triplea-sub001/internal/platform/cmd"
)

func main() {
	entrypoint.Main(entrypoint.ServiceBattleSim, battlesim.Main)
}
