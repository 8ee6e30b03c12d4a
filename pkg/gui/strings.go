package gui

const (
	quitTooltip = `Quit the battime tray icon.

The battime daemon keeps running, so "battime status" and other clients still work. Use "battime uninstall" to stop the daemon as well.`
	quitTooltipStandalone = `Quit the battime tray icon.`
)
