package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"msgmap/internal/messages"
	"msgmap/util"

	"github.com/spf13/cobra"
)

func (a *app) namesCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "names",
		Short: "List message names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			names := reg.AllMessageNames()
			if kind != "" {
				k, err := messages.ParseKind(kind)
				if err != nil {
					return err
				}
				if k == messages.KindCommand {
					names = reg.AllCommandNames()
				} else {
					names = reg.AllEventNames()
				}
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list command or event names")
	return cmd
}

func (a *app) wireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wire <MessageType>",
		Short: "Print the wire name of a message type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			wire, err := reg.MessageTypeToWireName(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), wire)
			return nil
		},
	}
}

func (a *app) typeCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "type <WIRE_NAME>",
		Short: "Print the message type that declares a wire name",
		Long: `Print the message type that declares a wire name. Wire names used by
both a command and an event need --kind.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			var name string
			if kind == "" {
				name, err = reg.WireNameToMessageType(args[0])
			} else {
				var k messages.Kind
				if k, err = messages.ParseKind(kind); err == nil {
					name, err = reg.LookupWireName(k, args[0])
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "command or event")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <envelope.json|->",
		Short: "Validate a message envelope against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read envelope: %w", err)
			}

			msg, err := reg.Unwrap(data)
			if err != nil {
				return err
			}
			subject := messages.Subject(msg.Kind, msg.WireName)
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"message_type": msg.MessageType,
					"kind":         msg.Kind.String(),
					"wire_name":    msg.WireName,
					"subject":      subject,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s (%s)\n", msg.MessageType, subject)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func (a *app) catalogueCmd() *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "Print a Markdown catalogue of every message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			if asHTML {
				html, err := util.CatalogueHTML(reg)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), html)
				return err
			}
			src, err := util.CatalogueMarkdown(reg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(src)
			return err
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "render the catalogue to HTML")
	return cmd
}
