package extraction

// systemPrompt instructs the model to emit a single JSON object or the word False.
// Coordinates are resolved from the city table afterwards, never by the model.
const systemPrompt = `You extract birth data from free text, often written in Persian.

Return ONLY one JSON object, no prose and no code fences, when the text contains all of:
a full name, a complete birth date, an unambiguous birth time and a birth place (province and city).

JSON shape:
{
  "name": "<full name transliterated to English, e.g. Roudin Radin>",
  "calendar": "jalali" | "gregorian",
  "year": <int>, "month": <int>, "day": <int>,
  "hour": <int>, "minute": <int>,
  "period": "am" | "pm" | "",
  "province": "<province as written in the text>",
  "city": "<city as written in the text>",
  "tz_str": "<IANA zone if stated, otherwise empty>"
}

Rules:
- Copy the date exactly as given and set "calendar"; do not convert Jalali dates yourself.
- Use "period" only when the text uses a 12-hour clock word such as صبح or عصر.
- Do not invent coordinates.

If any required item is missing, partial or ambiguous, reply with exactly: False`
