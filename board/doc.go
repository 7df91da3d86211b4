/*
Package board computes the departure board of a single physical stop.

A pass fuses the static dataset, the realtime feed and the current time:

	engine := board.NewEngine(board.Options{
	    Directions:  map[string]map[string]string{"1455": {"0": "Mesto"}},
	    PinnedGroup: "Mesto",
	    Location:    loc,
	}, nil)
	res, stats, err := engine.Compute("1455", dataset, feed)

The stages are exported on their own: Calculate produces the departures
inside the time window, Aggregate groups them into posts and ExtractAlerts
collects the alert texts for the stop.

# Effective time

A departure's effective time is its scheduled departure_time shifted by,
in order of preference, the departure delay of a matching stop_time_update
or the delay estimated from the trip's vehicle position.

# Time marks

	< 60 s            "0min"
	<= 30 min         "<N>min"
	> 30 min          "HH:MM"
	no time           "--:--"

A departure that is already due whose vehicle is reported stopped at the
platform within the freshness window shows the arrived marker ("**").
*/
package board
