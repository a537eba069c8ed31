// Command tileserver runs the raster map tile server.
package main

import "github.com/MeKo-Tech/tileserver/internal/cmd"

func main() {
	cmd.Execute()
}
