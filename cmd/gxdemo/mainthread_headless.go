//go:build headless

package main

import "github.com/gogpu/gxdraw"

func newMainThreadDevice() (gxdraw.Device, func() error) {
	return nil, nil
}
