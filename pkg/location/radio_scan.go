package location

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"googlemaps.github.io/maps"
)

// runTool executes a host networking tool and returns its stdout.
func runTool(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s not found: %w", name, err)
	}
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return out, nil
}

// getWiFiAccessPoints retrieves nearby WiFi access points using nmcli.
func getWiFiAccessPoints(ctx context.Context) ([]maps.WiFiAccessPoint, error) {
	output, err := runTool(ctx, "nmcli", "-t", "-f", "BSSID,SIGNAL", "dev", "wifi", "list")
	if err != nil {
		return nil, err
	}
	return parseWiFiAccessPoints(output)
}

// parseWiFiAccessPoints parses terse nmcli output. BSSID colons are escaped as "\:".
func parseWiFiAccessPoints(output []byte) ([]maps.WiFiAccessPoint, error) {
	var wifiAPs []maps.WiFiAccessPoint
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.ReplaceAll(scanner.Text(), `\:`, "-")
		bssid, signalStr, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		mac := strings.ReplaceAll(strings.TrimSpace(bssid), "-", ":")
		if !isValidMAC(mac) {
			continue
		}
		signal, err := strconv.Atoi(strings.TrimSpace(signalStr))
		if err != nil {
			continue
		}
		wifiAPs = append(wifiAPs, maps.WiFiAccessPoint{
			MACAddress:     mac,
			SignalStrength: float64(signal),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan nmcli output: %w", err)
	}
	return wifiAPs, nil
}

// getCellTowers retrieves the serving cell tower using mmcli for the given modem index.
func getCellTowers(ctx context.Context, modemIndex int) ([]maps.CellTower, error) {
	output, err := runTool(ctx, "mmcli", "-m", strconv.Itoa(modemIndex), "--location-get", "--output-keyvalue")
	if err != nil {
		return nil, err
	}
	return parseCellTowers(output)
}

func parseCellTowers(output []byte) ([]maps.CellTower, error) {
	var cellTower maps.CellTower
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case "modem.location.3gpp.mcc", "modem.3gpp.mcc":
			if v, err := strconv.Atoi(value); err == nil {
				cellTower.MobileCountryCode = v
			}
		case "modem.location.3gpp.mnc", "modem.3gpp.mnc":
			if v, err := strconv.Atoi(value); err == nil {
				cellTower.MobileNetworkCode = v
			}
		case "modem.location.3gpp.lac", "modem.3gpp.lac":
			if v, err := strconv.ParseInt(value, 16, 32); err == nil {
				cellTower.LocationAreaCode = int(v)
			}
		case "modem.location.3gpp.cid", "modem.3gpp.cid":
			if v, err := strconv.ParseInt(value, 16, 64); err == nil {
				cellTower.CellID = int(v)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan mmcli output: %w", err)
	}

	if cellTower.MobileCountryCode == 0 || cellTower.MobileNetworkCode == 0 {
		return nil, errors.New("incomplete cell tower data")
	}
	return []maps.CellTower{cellTower}, nil
}

// isValidMAC checks if the MAC address is in a valid format (e.g., "00:14:22:01:23:45").
func isValidMAC(mac string) bool {
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return false
	}
	for _, part := range parts {
		if len(part) != 2 {
			return false
		}
		if _, err := strconv.ParseUint(part, 16, 8); err != nil {
			return false
		}
	}
	return true
}
