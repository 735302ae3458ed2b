package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hangil-labs/geoconv/internal/addr"
	"github.com/hangil-labs/geoconv/internal/quota"
	"github.com/hangil-labs/geoconv/internal/resilience"
	"github.com/hangil-labs/geoconv/pkg/vworld"
)

var probeType string

// probeResult is the JSON shape printed by the probe command.
type probeResult struct {
	Address        string  `json:"address"`
	Type           string  `json:"type"`
	Classification string  `json:"classification"`
	Justification  string  `json:"justification"`
	Latitude       float64 `json:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty"`
	FailureKind    string  `json:"failure_kind,omitempty"`
	ProviderStatus string  `json:"provider_status,omitempty"`
}

var probeCmd = &cobra.Command{
	Use:   "probe <address>",
	Short: "Geocode one address and print the outcome as JSON",
	Long:  "Classifies and geocodes a single address against the live provider. Useful for checking the key, the endpoint, and how a troublesome address resolves.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.VWorld.Key == "" {
			return eris.New("probe: VWorld API key missing; set GEOCONV_VWORLD_KEY")
		}

		address := args[0]
		classifier := addr.NewClassifier(buildJudge(cfg.Judge))
		cls := classifier.Classify(cmd.Context(), address)

		typ := vworld.AddressType(strings.ToUpper(probeType))
		if probeType == "" {
			switch cls.Type {
			case addr.TypeParcel:
				typ = vworld.TypeParcel
			default:
				typ = vworld.TypeRoad
			}
		}

		client := vworld.NewClient(cfg.VWorld.Key,
			vworld.WithBaseURL(cfg.VWorld.BaseURL),
			vworld.WithRateLimit(cfg.VWorld.RatePerSec),
			vworld.WithTimeout(time.Duration(cfg.VWorld.TimeoutSecs)*time.Second),
			vworld.WithRetryPolicy(resilience.Policy{MaxAttempts: cfg.VWorld.MaxAttempts}),
			vworld.WithQuota(quota.New(cfg.VWorld.DailyLimit)),
		)

		result := probeResult{
			Address:        address,
			Type:           string(typ),
			Classification: string(cls.Type),
			Justification:  cls.Reason,
		}

		coord, err := client.Geocode(cmd.Context(), addr.Normalize(address), typ)
		if err != nil {
			result.FailureKind = string(vworld.Kind(err))
			result.ProviderStatus = vworld.ProviderStatus(err)
		} else {
			result.Latitude = coord.Latitude
			result.Longitude = coord.Longitude
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeType, "type", "", "force lookup type: road or parcel (default: classified type)")
	rootCmd.AddCommand(probeCmd)
}
