// Command remoteplayer answers one player's battle questions over gRPC.
package main

import (
	"github.com/triplea-game/triplea-sub001/internal/cmd/remoteplayer"
	entrypoint "github.com/triplea-game/triplea-sub001/internal/platform/cmd"
)

func main() {
	entrypoint.Main(entrypoint.ServiceRemotePlayer, remoteplayer.Main)
}
