// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotbot-org/botgate/pkg/gateway"
	"github.com/dotbot-org/botgate/pkg/hdlc"
	"github.com/dotbot-org/botgate/pkg/protocol"
)

var monitorShowErrors bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display the decoded packet log in human-readable format",
	Long: `Continuously deframe and decode gateway link traffic as it arrives.

Each packet is shown with a timestamp, payload type and decoded fields.
A counter summary is printed on exit.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorShowErrors, "show-errors", false, "Also log framing and decode errors")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, connInfo, err := openConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Botgate - Packet Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	// Ctrl+C closes the link, which unblocks the pending Read.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	interrupted := make(chan struct{})
	go func() {
		<-sigCh
		close(interrupted)
		conn.Close()
	}()

	stats := gateway.NewStatistics()
	handler := hdlc.NewHandler()
	buf := make([]byte, 1024)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames := handler.Feed(buf[:n], func(err error) {
				if monitorShowErrors {
					fmt.Printf("[ERROR] %v\n", err)
				}
				stats.Observe(func(c *gateway.Counters) {
					if errors.Is(err, hdlc.ErrInvalidFCS) {
						c.FCSErrors++
					} else {
						c.FramingErrors++
					}
				})
			})
			for _, frame := range frames {
				stats.Observe(func(c *gateway.Counters) { c.Frames++ })
				pkt, err := protocol.Decode(frame)
				if err != nil {
					if monitorShowErrors {
						fmt.Printf("[ERROR] %v\n", err)
					}
					stats.Observe(func(c *gateway.Counters) {
						switch {
						case errors.Is(err, protocol.ErrVersionMismatch):
							c.VersionMismatch++
						case errors.Is(err, protocol.ErrUnknownPayloadType):
							c.UnknownPayloads++
						default:
							c.TruncatedPackets++
						}
					})
					continue
				}
				stats.Observe(func(c *gateway.Counters) { c.Packets++ })
				fmt.Printf("[%s] %s", time.Now().Format("15:04:05.000"), protocol.FormatPacket(pkt))
			}
		}
		if err != nil {
			select {
			case <-interrupted:
				fmt.Printf("\n%s", stats.Snapshot())
				return nil
			default:
			}
			if errors.Is(err, gateway.ErrConnectionClosed) {
				log.Printf("Connection closed")
				fmt.Printf("\n%s", stats.Snapshot())
				return nil
			}
			return err
		}
	}
}
