package ui

// iconBytes is a 16x16 single-color PNG used as the tray icon.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x91, 0x68, 0x36, 0x00, 0x00, 0x00,
	0x22, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x64, 0x60, 0xf8, 0xcf,
	0x40, 0x09, 0x60, 0x62, 0xa0, 0x10, 0x8c, 0x1a, 0x30, 0x6a, 0xc0, 0xa8,
	0x01, 0xa3, 0x06, 0x8c, 0x1a, 0x40, 0x29, 0x00, 0x04, 0x18, 0x00, 0x62,
	0x28, 0x01, 0x21, 0x7e, 0x1e, 0x4e, 0x46, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
