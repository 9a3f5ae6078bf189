package geospatial

import (
	"fmt"
	"math"
	"strings"
)

// PolylinePrecision is the Google Maps encoded polyline precision (1e5).
const PolylinePrecision = 1e5

// EncodePolyline encodes [lat, lon] pairs with the Encoded Polyline Algorithm Format.
func EncodePolyline(points [][2]float64) string {
	var sb strings.Builder
	var prevLat, prevLon int64
	for _, p := range points {
		lat := int64(math.Round(p[0] * PolylinePrecision))
		lon := int64(math.Round(p[1] * PolylinePrecision))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

func encodeValue(sb *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte((0x20 | (u & 0x1f)) + 63))
		u >>= 5
	}
	sb.WriteByte(byte(u + 63))
}

// DecodePolyline converts an encoded polyline back to [lat, lon] pairs.
func DecodePolyline(encoded string) ([][2]float64, error) {
	var points [][2]float64
	var lat, lon int64
	i := 0
	for i < len(encoded) {
		dLat, n, err := decodeValue(encoded, i)
		if err != nil {
			return nil, err
		}
		i = n
		dLon, n, err := decodeValue(encoded, i)
		if err != nil {
			return nil, err
		}
		i = n
		lat += dLat
		lon += dLon
		points = append(points, [2]float64{
			float64(lat) / PolylinePrecision,
			float64(lon) / PolylinePrecision,
		})
	}
	return points, nil
}

func decodeValue(s string, i int) (int64, int, error) {
	var result int64
	shift := uint(0)
	for {
		if i >= len(s) {
			return 0, i, fmt.Errorf("truncated polyline at byte %d", i)
		}
		b := int64(s[i]) - 63
		i++
		if b < 0 || b > 0x3f {
			return 0, i, fmt.Errorf("invalid polyline byte %q at %d", s[i-1], i-1)
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
