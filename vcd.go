// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"sort"
	"strconv"
	"strings"
)

var vcdName = strings.NewReplacer("[", "_", "]", "", ".", "_", " ", "_")

// vcdID returns the VCD identifier code of the i-th variable.
//
func vcdID(i int) string {
	var b []byte
	for {
		b = append(b, byte('!'+i%94))
		i /= 94
		if i == 0 {
			break
		}
		i--
	}
	return string(b)
}

// ExportVCD returns the enabled traces as a Value Change Dump. The output
// only depends on the recorded values.
//
func (m *Machine) ExportVCD() string {
	var traces []*Trace
	for _, t := range m.traces {
		if t.Enabled {
			traces = append(traces, t)
		}
	}

	var sb strings.Builder
	sb.WriteString("$version ticksim $end\n")
	sb.WriteString("$timescale 1ns $end\n")
	sb.WriteString("$scope module top $end\n")
	for i, t := range traces {
		sb.WriteString("$var reg 8 " + vcdID(i) + " " + vcdName.Replace(t.Comp+"_"+t.Pin) + " $end\n")
	}
	sb.WriteString("$upscope $end\n")
	sb.WriteString("$enddefinitions $end\n")

	// all sampled ticks in order
	seen := make(map[int64]bool)
	var ticks []int64
	for _, t := range traces {
		for _, tt := range t.Ticks {
			if !seen[tt] {
				seen[tt] = true
				ticks = append(ticks, tt)
			}
		}
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	var t0 int64
	if len(ticks) > 0 {
		t0 = ticks[0]
	}
	pos := make([]int, len(traces))
	last := make([]uint64, len(traces))
	known := make([]bool, len(traces))

	sb.WriteString("#" + strconv.FormatInt(t0, 10) + "\n")
	sb.WriteString("$dumpvars\n")
	for i, t := range traces {
		if len(t.Ticks) > 0 && t.Ticks[0] == t0 {
			last[i], known[i] = t.Values[0], true
			pos[i] = 1
			sb.WriteString("b" + strconv.FormatUint(last[i], 2) + " " + vcdID(i) + "\n")
		} else {
			sb.WriteString("bx " + vcdID(i) + "\n")
		}
	}
	sb.WriteString("$end\n")

	var lines []string
	for _, tt := range ticks {
		if tt == t0 {
			continue
		}
		lines = lines[:0]
		for i, t := range traces {
			if pos[i] >= len(t.Ticks) || t.Ticks[pos[i]] != tt {
				continue
			}
			v := t.Values[pos[i]]
			pos[i]++
			if known[i] && v == last[i] {
				continue
			}
			last[i], known[i] = v, true
			lines = append(lines, "b"+strconv.FormatUint(v, 2)+" "+vcdID(i)+"\n")
		}
		if len(lines) == 0 {
			continue
		}
		sb.WriteString("#" + strconv.FormatInt(tt, 10) + "\n")
		for _, l := range lines {
			sb.WriteString(l)
		}
	}
	return sb.String()
}
