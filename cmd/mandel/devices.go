package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/mandel"
)

func (a *app) devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List physical devices and their compute capability",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := a.load()
			if err != nil {
				return err
			}
			devices, err := mandel.Devices(f.Backend, f.Validation)
			if err != nil {
				return err
			}

			p := message.NewPrinter(language.English)
			if len(devices) == 0 {
				p.Fprintln(a.stdout, "no devices")
				return nil
			}
			for i, d := range devices {
				p.Fprintf(a.stdout, "[%d] %s\n", i, d.Info.Name)
				p.Fprintf(a.stdout, "    type: %s, API %s, vendor %#04x, device %#04x\n",
					d.Info.Type, d.Info.APIVersionString(), d.Info.VendorID, d.Info.DeviceID)
				if d.Capable {
					p.Fprintf(a.stdout, "    compute: queue family %d\n", d.ComputeFamily)
				} else {
					p.Fprintln(a.stdout, "    compute: none")
				}
				for j, q := range d.QueueFamilies {
					p.Fprintf(a.stdout, "    queue family %d: %s x%d\n", j, q.Flags, q.Count)
				}
				for j, h := range d.Memory.Heaps {
					local := ""
					if h.DeviceLocal {
						local = " device-local"
					}
					p.Fprintf(a.stdout, "    heap %d: %d MiB%s\n", j, h.Size>>20, local)
				}
			}
			return nil
		},
	}
}
