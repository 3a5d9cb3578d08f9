// Package camera talks to the Reolink camera: the api.cgi command surface
// (login, AI state, ISP and network-port settings) and the ONVIF pull-point
// event channel that delivers motion notifications.
package camera
