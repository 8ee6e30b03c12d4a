package client

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/battime/pkg/config"
	"github.com/charlie0129/battime/pkg/daemon"
	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/presentation"
)

func (c *Client) GetDisplay() (presentation.DisplayState, error) {
	var d presentation.DisplayState
	ret, err := c.Get("/display")
	if err != nil {
		return d, pkgerrors.Wrapf(err, "failed to get display state")
	}
	if err := json.Unmarshal([]byte(ret), &d); err != nil {
		return d, pkgerrors.Wrapf(err, "failed to unmarshal display state")
	}
	return d, nil
}

func (c *Client) GetSnapshot() (power.Snapshot, error) {
	var s power.Snapshot
	ret, err := c.Get("/snapshot")
	if err != nil {
		return s, pkgerrors.Wrapf(err, "failed to get power snapshot")
	}
	if err := json.Unmarshal([]byte(ret), &s); err != nil {
		return s, pkgerrors.Wrapf(err, "failed to unmarshal power snapshot")
	}
	return s, nil
}

func (c *Client) GetStatus() (*daemon.StatusResponse, error) {
	ret, err := c.Get("/status")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get status")
	}
	var st daemon.StatusResponse
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal status")
	}
	return &st, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}
	var raw config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &raw); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}
	return &raw, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get daemon version")
	}
	return parseStringResponse(ret)
}

func (c *Client) SetLocale(locale string) (string, error) {
	payload, err := json.Marshal(locale)
	if err != nil {
		return "", err
	}
	ret, err := c.Put("/locale", string(payload))
	if err != nil {
		return "", err
	}
	return parseStringResponse(ret)
}

func (c *Client) SetPercentSeparator(sep string) (string, error) {
	payload, err := json.Marshal(sep)
	if err != nil {
		return "", err
	}
	ret, err := c.Put("/percent-separator", string(payload))
	if err != nil {
		return "", err
	}
	return parseStringResponse(ret)
}

// Refresh asks the daemon to re-read its power source now.
func (c *Client) Refresh() (presentation.DisplayState, error) {
	var d presentation.DisplayState
	ret, err := c.Post("/refresh", "")
	if err != nil {
		return d, pkgerrors.Wrapf(err, "failed to refresh")
	}
	if err := json.Unmarshal([]byte(ret), &d); err != nil {
		return d, pkgerrors.Wrapf(err, "failed to unmarshal display state")
	}
	return d, nil
}

// parseStringResponse unquotes a JSON string body. Bodies that are not
// JSON strings are returned as-is.
func parseStringResponse(resp string) (string, error) {
	resp = strings.TrimSpace(resp)
	if !strings.HasPrefix(resp, `"`) {
		return resp, nil
	}
	var s string
	if err := json.Unmarshal([]byte(resp), &s); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal response %q", resp)
	}
	return s, nil
}
