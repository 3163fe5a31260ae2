package settings

// Default is what a fresh install shows before anyone edits the settings.
func Default() Value {
	return Object(
		F("siteName", String("Kairo Digital")),
		F("tagline", String("Sites et applications sur mesure")),
		F("contact", Object(
			F("email", String("")),
			F("phone", String("")),
			F("city", String("Paris")),
		)),
		F("booking", Object(
			F("enabled", Bool(true)),
			F("intro", String("Réservez un appel découverte de 30 minutes.")),
			F("noticeHours", Number(0)),
		)),
		F("social", Object(
			F("linkedin", String("")),
			F("github", String("")),
		)),
		F("services", Array(
			String("Sites vitrines"),
			String("E-commerce"),
			String("Applications web"),
		)),
		F("maintenanceMode", Bool(false)),
	)
}
