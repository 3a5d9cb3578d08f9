// Package capture records a short burst from the camera's RTSP stream with
// ffmpeg and extracts every frame of the clip as an encoded JPEG.
package capture
