package cmd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/spf13/cobra"
)

// NewDecodeCmd dumps a DICOM object as text or json
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "DICOM decode",
		Long:  "Dump every element of a DICOM file, stdin or http(s) resource, nested sequences included",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}
			in, err := open(ctx, cmd, strings.TrimPrefix(uri, "file://"))
			if err != nil {
				return err
			}
			defer in.Close()

			dataset, err := dicom.Parse(in)
			if err != nil {
				return fmt.Errorf("failed to parse: %w", err)
			}
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "text":
				fmt.Println(dataset)
			default:
				j, err := json.Marshal(dataset)
				if err != nil {
					return err
				}
				os.Stdout.Write(j)
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "DICOM file, - for stdin, or http(s) URL")
	pf.StringP("format", "f", "json", "output format (text|json)")
	pf.BoolP("verbose", "v", false, "dump http request and response headers")
	pf.Bool("insecure", false, "skip TLS verification for https")
	return cmd
}

func open(ctx context.Context, cmd *cobra.Command, uri string) (io.ReadCloser, error) {
	switch {
	case uri == "":
		return nil, fmt.Errorf("a file, - or URL is required")
	case uri == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(uri, "http"):
		insecure, _ := cmd.Flags().GetBool("insecure")
		cl := &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := cl.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download: %w", err)
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			reqDump, _ := httputil.DumpRequest(req, true)
			os.Stderr.Write(reqDump)
			resDump, _ := httputil.DumpResponse(resp, false)
			os.Stderr.Write(resDump)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to download: %s", resp.Status)
		}
		return resp.Body, nil
	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		return f, nil
	}
}
