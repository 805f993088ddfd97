package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/pricecheck/backend/internal/domain"
)

var (
	regionIDPattern       = regexp.MustCompile(`"regionId"\s*:\s*"?(\d+)"?`)
	nicknamePattern       = regexp.MustCompile(`"nickname"\s*:\s*"([^"]+)"`)
	displayAddressPattern = regexp.MustCompile(`"displayAddress"\s*:\s*"([^"]+)"`)
	postalCodePattern     = regexp.MustCompile(`"postalCode"\s*:\s*"([^"]+)"`)

	// older cart shape nests the id under "region"
	altRegionIDPattern = regexp.MustCompile(`"region"\s*:\s*\{\s*"id"\s*:\s*"?(\d+)"?`)
)

// cartResponse is the subset of the active-cart payload used for region lookup
type cartResponse struct {
	RegionID             any `json:"regionId"`
	DefaultCheckoutGroup *struct {
		Delivery *struct {
			AddressDetails *struct {
				Nickname       string `json:"nickname"`
				DisplayAddress string `json:"displayAddress"`
				PostalCode     string `json:"postalCode"`
			} `json:"addressDetails"`
		} `json:"delivery"`
	} `json:"defaultCheckoutGroup"`
}

// ResolveRegion determines the delivery region bound to credential. It never
// fails: unreachable or unexpected upstreams yield a fixed "unknown" region.
func (c *Client) ResolveRegion(ctx context.Context, credential string) domain.RegionInfo {
	resp, err := c.get(ctx, cartPath, nil, c.cfg.CartRouteID, credential, c.cfg.RegionTimeout)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("region lookup timed out")
			return domain.RegionInfo{
				RegionID:       domain.UnknownRegionID,
				Nickname:       "Timeout Error",
				DisplayAddress: "API request timed out",
				PostalCode:     "Unknown",
			}
		}
		c.logger.Warn("region lookup failed", "error", err)
		return domain.RegionInfo{
			RegionID:       domain.UnknownRegionID,
			Nickname:       "Error",
			DisplayAddress: truncate(err.Error(), 50),
			PostalCode:     "Unknown",
		}
	}

	if resp.status != http.StatusOK {
		c.logger.Warn("region lookup unexpected status", "status", resp.status)
		return domain.RegionInfo{
			RegionID:       domain.UnknownRegionID,
			Nickname:       "Unknown Region",
			DisplayAddress: "No address available",
			PostalCode:     "Unknown",
		}
	}

	return parseRegion(resp.body)
}

// parseRegion reads the region from a cart payload, falling back to field
// regexes when the payload does not decode or lacks a region id.
func parseRegion(body string) domain.RegionInfo {
	var cart cartResponse
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&cart); err != nil {
		return fallbackRegion(body)
	}

	info := domain.RegionInfo{RegionID: scalarString(cart.RegionID)}
	if g := cart.DefaultCheckoutGroup; g != nil && g.Delivery != nil && g.Delivery.AddressDetails != nil {
		addr := g.Delivery.AddressDetails
		info.Nickname = addr.Nickname
		info.DisplayAddress = addr.DisplayAddress
		info.PostalCode = addr.PostalCode
	}

	if info.RegionID == "" {
		return fallbackRegion(body)
	}
	if info.Nickname == "" {
		info.Nickname = fmt.Sprintf("Region %s", info.RegionID)
	}
	return info
}

// fallbackRegion extracts each region field independently; first match wins.
func fallbackRegion(body string) domain.RegionInfo {
	info := domain.RegionInfo{
		RegionID:       firstGroup(regionIDPattern, body),
		Nickname:       firstGroup(nicknamePattern, body),
		DisplayAddress: firstGroup(displayAddressPattern, body),
		PostalCode:     firstGroup(postalCodePattern, body),
	}
	if info.RegionID == "" {
		info.RegionID = firstGroup(altRegionIDPattern, body)
	}
	if info.Nickname == "" && info.RegionID != "" {
		info.Nickname = fmt.Sprintf("Region %s", info.RegionID)
	}
	return info
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
