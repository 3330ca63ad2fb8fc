package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/banshee-data/trackline/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "info":
		err = handleInfo(args)
	case "check":
		err = handleCheck(args)
	case "plot":
		err = handlePlot(args)
	case "chart":
		err = handleChart(args)
	case "dump":
		err = handleDump(args)
	case "pcap2log":
		err = handlePCAP2Log(args)
	case "version":
		fmt.Println(version.String("trackline"))
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`trackline - track geometry and drive log tools

Usage: trackline <command> [options]

Commands:
  info       Print section list, path length and closure of a track
  check      Exit non-zero unless the track closes on itself
  plot       Render a track and optional driven paths to an image
  chart      Write an HTML chart of lateral offset over time
  dump       Decode the records of one or more I/O logs
  pcap2log   Convert a UDP packet capture into an I/O log
  version    Show version information
  help       Show this help message

Track files ending in .json hold a section list; anything else is read
as track XML.

Examples:
  trackline info -v tracks/oval.xml
  trackline check -tol 0.01 tracks/oval.xml
  trackline plot -o oval.png tracks/oval.xml logs/drive_260101_120000.log
  trackline chart -track tracks/oval.xml -db telemetry.db -o offsets.html
  trackline pcap2log -port 3001 -o session.log capture.pcap

Run 'trackline <command> -h' for command-specific help.`)
}

// requireArgs checks the positional arguments left after flag parsing.
func requireArgs(fs *flag.FlagSet, min int, what string) error {
	if fs.NArg() < min {
		fs.Usage()
		return fmt.Errorf("%s requires %s", fs.Name(), what)
	}
	return nil
}
