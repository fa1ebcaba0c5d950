// Package audio defines the playback capability consumed by the alarm
// controller and implements it on top of gopxl/beep's speaker.
//
// Supported formats: mp3, wav, flac and ogg/vorbis, selected by file
// extension.
package audio
