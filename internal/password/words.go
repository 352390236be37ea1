package password

// words is the list passwords are composed from.
var words = []string{
	"aurora", "beacon", "blaze", "bloom", "bolt", "candle", "comet", "corona",
	"crystal", "dawn", "daylight", "dusk", "echo", "ember", "facet", "filament",
	"flare", "flash", "flicker", "focus", "gleam", "glimmer", "glint", "glisten",
	"glitter", "glow", "halo", "haze", "horizon", "hue", "iris", "jewel",
	"kindle", "lamp", "lantern", "laser", "lens", "lightning", "lucent", "lumen",
	"luster", "meteor", "mirror", "moonbeam", "neon", "nova", "opal", "optic",
	"orbit", "photon", "pixel", "polar", "prism", "pulse", "quasar", "radiant",
	"rainbow", "ray", "reflex", "refract", "ripple", "ruby", "sapphire", "scatter",
	"shade", "shadow", "shimmer", "shine", "signal", "silhouette", "solar", "spark",
	"sparkle", "spectrum", "spotlight", "star", "starlight", "sunbeam", "sunrise", "sunset",
	"sunspot", "topaz", "torch", "twilight", "vapor", "violet", "visor", "wave",
	"wick", "zenith", "amber", "azure", "cobalt", "crimson", "cyan", "emerald",
	"gold", "indigo", "ivory", "jade", "lilac", "magenta", "ochre", "olive",
	"pearl", "plum", "rose", "saffron", "scarlet", "silver", "teal", "umber",
	"beam", "burst", "cascade", "channel", "circuit", "current", "drift", "fiber",
	"flux", "frequency", "glass", "harbor", "lattice", "meridian", "mist", "north",
	"path", "quartz", "relay", "route", "spiral", "stream", "summit", "tide",
	"trail", "vector", "vessel", "voyage", "arc", "atlas", "bay", "cape",
	"cliff", "coast", "delta", "dune", "fjord", "glacier", "grove", "island",
	"lagoon", "mesa", "oasis", "peak", "prairie", "reef", "ridge", "savanna",
	"shore", "sound", "strait", "tundra", "valley", "canyon", "cove", "crater",
	"geyser", "lake", "marsh", "meadow", "river", "spring", "brook", "falls",
	"cavern",
}
