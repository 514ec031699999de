package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect mapping profiles",
	Long:  `List and inspect the mapping profiles that project source fields into Solr fields.`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		names := current.profiles.List()
		if len(names) == 0 {
			fmt.Fprintln(out, "No profiles found")
			return nil
		}

		fmt.Fprintln(out, "Available profiles:")
		for _, name := range names {
			profile, _ := current.profiles.Get(name)
			desc := ""
			if profile.Description != "" {
				desc = " - " + profile.Description
			}
			fmt.Fprintf(out, "  %s (%d rules)%s\n", name, len(profile.Rules), desc)
		}
		return nil
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show [profile]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := current.profiles.MustGet(args[0])
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(profile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var profilesFieldsCmd = &cobra.Command{
	Use:   "fields [profile]",
	Short: "List source to Solr field mappings in a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := current.profiles.MustGet(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Fields in %s profile:\n\n", profile.Name)
		fmt.Fprintf(out, "%-30s -> %s\n", "Source Field", "Solr Fields")
		fmt.Fprintf(out, "%-30s    %s\n", "------------", "-----------")
		for _, rule := range profile.Rules {
			fmt.Fprintf(out, "%-30s -> %s\n", rule.Source, strings.Join(rule.Targets, ", "))
		}

		if len(profile.Constants) > 0 {
			fields := make([]string, 0, len(profile.Constants))
			for field := range profile.Constants {
				fields = append(fields, field)
			}
			sort.Strings(fields)

			fmt.Fprintf(out, "\nConstants:\n")
			for _, field := range fields {
				fmt.Fprintf(out, "  %-28s = %s\n", field, profile.Constants[field])
			}
		}
		return nil
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesFieldsCmd)
}
