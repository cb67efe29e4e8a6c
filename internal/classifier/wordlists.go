package classifier

// The three detection word lists. Order matters: matched entries are
// reported and highlighted in list order, so these are slices rather
// than sets. All entries are lowercase; matching lowers the input.
// Never mutated after init.

// aiKeywords are terms statistically over-represented in generated prose.
var aiKeywords = []string{
	"delve",
	"tapestry",
	"leverage",
	"optimize",
	"innovative",
	"seamless",
	"robust",
	"holistic",
	"paradigm",
	"synergy",
	"streamline",
	"facilitate",
	"utilize",
	"foster",
	"pivotal",
	"comprehensive",
	"transformative",
	"cutting-edge",
	"landscape",
	"realm",
	"underscore",
	"multifaceted",
	"intricate",
	"crucial",
	"empower",
}

// suspiciousPatterns are explicit AI-related phrases. They are checked
// as substrings, not word-bounded, so inflected forms still hit.
var suspiciousPatterns = []string{
	"as an ai",
	"as a language model",
	"i cannot browse",
	"i don't have personal",
	"machine learning",
	"artificial intelligence",
	"neural network",
	"it is important to note",
	"it is worth noting",
	"in today's fast-paced world",
	"in the ever-evolving landscape",
	"unleash the power",
	"dive into the world",
	"in conclusion, it is evident",
}

// transitionWords are formal discourse connectives; generated text leans
// on them far more than casual human writing does.
var transitionWords = []string{
	"however",
	"therefore",
	"furthermore",
	"moreover",
	"additionally",
	"consequently",
	"nevertheless",
	"nonetheless",
	"subsequently",
	"accordingly",
}
