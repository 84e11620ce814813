package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/ui"
	"github.com/urfave/cli/v3"
)

// connect resumes the session and returns the Web API client.
func (r *Runner) connect(ctx context.Context) (*services.SpotifyClient, error) {
	if err := r.resume(ctx); err != nil {
		return nil, err
	}
	return r.player()
}

// PlayerNow shows the currently playing item.
func (r *Runner) PlayerNow(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	current, err := client.CurrentlyPlaying(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(current, cmd.Bool("pretty"))
	}
	if current == nil || current.Item == nil {
		return r.writePlain("Nothing is playing\n")
	}

	r.writePlain("%s %s\n", playingIcon(current.IsPlaying), formatTrack(current.Item))
	return r.writePlain("%s / %s\n", formatDuration(current.ProgressMS), formatDuration(current.Item.DurationMS))
}

// PlayerState shows the full playback state including device, shuffle and repeat.
func (r *Runner) PlayerState(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	state, err := client.PlaybackState(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(state, cmd.Bool("pretty"))
	}
	if state == nil {
		return r.writePlain("No active playback\n")
	}

	r.writePlainHeader("Playback")
	if state.Item != nil {
		r.writePlain("%s %s\n", playingIcon(state.IsPlaying), formatTrack(state.Item))
	}
	if state.Device != nil {
		r.writePlain("Device:  %s (%s)%s\n", state.Device.Name, state.Device.Type, formatVolume(state.Device.VolumePercent))
	}
	r.writePlain("Shuffle: %s\n", onOff(state.ShuffleState))
	return r.writePlain("Repeat:  %s\n", state.RepeatState)
}

// PlayerQueue shows the current item and the upcoming queue.
func (r *Runner) PlayerQueue(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	queue, err := client.Queue(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(queue, cmd.Bool("pretty"))
	}
	if queue == nil || (queue.CurrentlyPlaying == nil && len(queue.Queue) == 0) {
		return r.writePlain("Queue is empty\n")
	}

	if queue.CurrentlyPlaying != nil {
		r.writePlain("Now:  %s\n", formatTrack(queue.CurrentlyPlaying))
	}
	for i, track := range queue.Queue {
		r.writePlain("%3d.  %s\n", i+1, formatTrack(&track))
	}
	return nil
}

// PlayerRecent shows recently played tracks.
func (r *Runner) PlayerRecent(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	recent, err := client.RecentlyPlayed(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(recent, cmd.Bool("pretty"))
	}
	if recent == nil || len(recent.Items) == 0 {
		return r.writePlain("No recently played tracks\n")
	}

	for _, item := range recent.Items {
		playedAt := item.PlayedAt
		if t, err := time.Parse(time.RFC3339, item.PlayedAt); err == nil {
			playedAt = t.Local().Format(time.DateTime)
		}
		r.writePlain("%s  %s\n", ui.Styles.Help(playedAt), formatTrack(&item.Track))
	}
	return nil
}

// PlayerDevices lists devices available for playback.
func (r *Runner) PlayerDevices(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	devices, err := client.Devices(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(devices, cmd.Bool("pretty"))
	}
	if devices == nil || len(devices.Devices) == 0 {
		return r.writePlain("No devices found. Open Spotify on a device first.\n")
	}

	for _, device := range devices.Devices {
		marker := " "
		if device.IsActive {
			marker = ui.Styles.OK("*")
		}
		r.writePlain("%s %s  %s (%s)%s\n", marker, device.ID, device.Name, device.Type, formatVolume(device.VolumePercent))
	}
	return nil
}

// PlayerPlay resumes playback or starts a track or context.
func (r *Runner) PlayerPlay(ctx context.Context, cmd *cli.Command) error {
	opts := services.PlayOptions{
		DeviceID:   cmd.String("device"),
		TrackURI:   cmd.String("track"),
		ContextURI: cmd.String("context"),
	}
	if opts.TrackURI != "" && opts.ContextURI != "" {
		return fmt.Errorf("%w: cannot specify both --track and --context", shared.ErrInvalidArgument)
	}
	if offset := int(cmd.Int("offset")); offset >= 0 {
		if opts.ContextURI == "" {
			return fmt.Errorf("%w: --offset requires --context", shared.ErrInvalidArgument)
		}
		opts.Offset = &offset
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	if err := client.Play(ctx, opts); err != nil {
		return err
	}
	return r.done("Playing")
}

// PlayerPause pauses playback.
func (r *Runner) PlayerPause(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	if err := client.Pause(ctx); err != nil {
		return err
	}
	return r.done("Paused")
}

// PlayerToggle flips between playing and paused.
func (r *Runner) PlayerToggle(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	playing, err := client.TogglePlayback(ctx)
	if err != nil {
		return err
	}
	if playing {
		return r.done("Playing")
	}
	return r.done("Paused")
}

// PlayerNext skips forward.
func (r *Runner) PlayerNext(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	if err := client.Next(ctx); err != nil {
		return err
	}
	return r.done("Skipped to next track")
}

// PlayerPrevious skips back.
func (r *Runner) PlayerPrevious(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	if err := client.Previous(ctx); err != nil {
		return err
	}
	return r.done("Skipped to previous track")
}

// PlayerAdd queues a track URI.
func (r *Runner) PlayerAdd(ctx context.Context, cmd *cli.Command) error {
	uri := strings.TrimSpace(cmd.StringArg("uri"))
	if uri == "" {
		return fmt.Errorf("%w: track uri", shared.ErrMissingArgument)
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	if err := client.AddToQueue(ctx, uri); err != nil {
		return err
	}
	return r.done("Added to queue")
}

// PlayerShuffle turns shuffle on or off. Without a state it flips the current one.
func (r *Runner) PlayerShuffle(ctx context.Context, cmd *cli.Command) error {
	raw := strings.TrimSpace(cmd.StringArg("state"))

	var on bool
	if raw != "" {
		var err error
		if on, err = parseToggle(raw); err != nil {
			return err
		}
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	if raw == "" {
		on, err = client.ToggleShuffle(ctx)
	} else {
		err = client.SetShuffle(ctx, on)
	}
	if err != nil {
		return err
	}
	return r.done("Shuffle " + onOff(on))
}

// PlayerRepeat sets the repeat mode. Without a mode it advances off, context, track.
func (r *Runner) PlayerRepeat(ctx context.Context, cmd *cli.Command) error {
	mode := strings.ToLower(strings.TrimSpace(cmd.StringArg("mode")))
	switch mode {
	case services.RepeatOff, services.RepeatContext, services.RepeatTrack, "":
	default:
		return fmt.Errorf("%w: repeat mode %q, want off, context or track", shared.ErrInvalidArgument, mode)
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	if mode == "" {
		mode, err = client.CycleRepeat(ctx)
	} else {
		err = client.SetRepeat(ctx, mode)
	}
	if err != nil {
		return err
	}
	return r.done("Repeat " + mode)
}

// PlayerVolume sets the volume of the active device.
func (r *Runner) PlayerVolume(ctx context.Context, cmd *cli.Command) error {
	raw := strings.TrimSuffix(strings.TrimSpace(cmd.StringArg("percent")), "%")
	if raw == "" {
		return fmt.Errorf("%w: volume percent", shared.ErrMissingArgument)
	}
	percent, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: volume %q is not a number", shared.ErrInvalidArgument, raw)
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	if err := client.SetVolume(ctx, percent); err != nil {
		return err
	}
	return r.done(fmt.Sprintf("Volume set to %d%%", min(max(percent, 0), 100)))
}

// PlayerTransfer moves playback to another device.
func (r *Runner) PlayerTransfer(ctx context.Context, cmd *cli.Command) error {
	deviceID := strings.TrimSpace(cmd.StringArg("device"))
	if deviceID == "" {
		return fmt.Errorf("%w: device id (see 'spotx player devices')", shared.ErrMissingArgument)
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	if err := client.TransferPlayback(ctx, deviceID, cmd.Bool("play")); err != nil {
		return err
	}
	return r.done("Playback transferred")
}

// Playlists lists the user's playlists, one page or all of them.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	var playlists []services.SpotifySimplePlaylist
	if cmd.Bool("all") {
		if playlists, err = client.AllPlaylists(ctx); err != nil {
			return err
		}
	} else {
		page, err := client.Playlists(ctx, int(cmd.Int("limit")), int(cmd.Int("offset")))
		if err != nil {
			return err
		}
		playlists = page.Items
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}
	if len(playlists) == 0 {
		return r.writePlain("No playlists found\n")
	}

	for _, playlist := range playlists {
		r.writePlain("%s  %s %s\n", playlist.URI, playlist.Name, ui.Styles.Help(fmt.Sprintf("(%d tracks)", playlist.Tracks.Total)))
	}
	return nil
}

func (r *Runner) done(message string) error {
	return r.writePlain("%s\n", ui.Styles.Done(message))
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", ui.Styles.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}

func formatTrack(track *services.SpotifyTrack) string {
	if track == nil {
		return ""
	}

	names := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		names = append(names, artist.Name)
	}
	if len(names) == 0 {
		return track.Name
	}
	return track.Name + " - " + strings.Join(names, ", ")
}

// formatDuration renders milliseconds as m:ss.
func formatDuration(ms int) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func formatVolume(percent *int) string {
	if percent == nil {
		return ""
	}
	return fmt.Sprintf(", volume %d%%", *percent)
}

func playingIcon(playing bool) string {
	if playing {
		return ui.Styles.OK("▶")
	}
	return ui.Styles.Warn("❚❚")
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func parseToggle(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: shuffle state %q, want on or off", shared.ErrInvalidArgument, s)
	}
}
