// Package extract fills in what a scan cannot know about a video: duration,
// resolution, codecs and a thumbnail.
//
// Newly indexed videos are handed to a Queue, which runs ffprobe and ffmpeg
// on a bounded worker pool and writes the outcome back to the library index.
// Requests never block; when the queue is full the video stays pending and
// is picked up again by RequestPending.
package extract
