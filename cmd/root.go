// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/flowreader/internal/source"
)

const version = "0.1.0"

// Execute runs the root command. The returned error has already been
// printed by cobra; the caller only maps it to the exit code.
func Execute() error {
	return newRootCmd(os.Stdout).Execute()
}

// newRootCmd builds the command tree. Flow records go to out.
func newRootCmd(out io.Writer) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "flowreader",
		Short: "Passive flow reader: one JSON record per captured IP frame",
		Long: `flowreader captures Ethernet frames from a live device or a pcap file,
decodes Ethernet, ARP, IPv4, IPv6, TCP, UDP and ICMPv6 neighbor discovery,
and writes one JSON flow record per IP frame to standard output.

MAC addresses are filled in from ARP replies and IPv6 neighbor
advertisements observed on the wire. Port-53 payloads are decoded as DNS
and logged at debug level.

Examples:
  flowreader                           # capture on eth0
  flowreader -i ens3 -f "not port 22"  # capture on ens3 with a filter
  flowreader -r trace.pcap             # replay a capture file and exit
  flowreader -c flowreader.yml config  # print the effective configuration`,
		Version:       version,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd.Context(), configFile, cmd.Flags(), out)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	pf.StringP("interface", "i", "", "capture device (default "+source.DefaultDevice+")")
	pf.StringP("read", "r", "", "read frames from a pcap file instead of a device")
	pf.StringP("filter", "f", "", "capture filter expression")
	pf.Int("snaplen", source.DefaultSnapLen, "bytes retained per frame")
	pf.Bool("promisc", true, "put the device in promiscuous mode")
	pf.Int("timeout", source.DefaultTimeoutMs, "capture poll timeout in milliseconds")
	pf.String("capture-type", source.TypePcap, "capture backend: pcap or afpacket")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(newConfigCmd(&configFile))
	return rootCmd
}
