package main

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/mandel/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := a.load()
			if err != nil {
				return err
			}
			data, err := config.Marshal(f)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
}
